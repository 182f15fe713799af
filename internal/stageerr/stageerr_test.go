package stageerr_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"recap/internal/stageerr"
)

func TestClassification(t *testing.T) {
	transient := stageerr.Transientf("connection refused")
	permanent := stageerr.Permanentf("bad input")

	assert.True(t, stageerr.IsTransient(transient))
	assert.False(t, stageerr.IsPermanent(transient))

	assert.True(t, stageerr.IsPermanent(permanent))
	assert.False(t, stageerr.IsTransient(permanent))
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	inner := stageerr.Permanentf("unsupported format")
	wrapped := fmt.Errorf("transcribe stage: %w", inner)

	assert.True(t, stageerr.IsPermanent(wrapped))
	assert.False(t, stageerr.IsTransient(wrapped))
}

func TestUntaggedErrorsDefaultToTransient(t *testing.T) {
	assert.True(t, stageerr.IsTransient(errors.New("something broke")))
}

func TestContextErrors(t *testing.T) {
	// A timeout is worth retrying; a cancel means someone gave up.
	assert.True(t, stageerr.IsTransient(context.DeadlineExceeded))
	assert.False(t, stageerr.IsTransient(context.Canceled))
	assert.False(t, stageerr.IsTransient(fmt.Errorf("stage: %w", context.Canceled)))
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, stageerr.Transient(nil))
	assert.Nil(t, stageerr.Permanent(nil))
	assert.False(t, stageerr.IsTransient(nil))
	assert.False(t, stageerr.IsPermanent(nil))
}
