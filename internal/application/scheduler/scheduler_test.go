package scheduler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/zentral/internal/application/scheduler"
	"github.com/jhoicas/zentral/internal/tenancy"
)

type fakeSweeper struct {
	n      int
	err    error
	bypass bool
}

func (f *fakeSweeper) SweepPauses(ctx context.Context) (int, error) {
	rc := tenancy.FromContext(ctx)
	f.bypass = rc != nil && rc.Bypass()
	return f.n, f.err
}

func TestRunOnce_CorreComoSistema(t *testing.T) {
	sw := &fakeSweeper{n: 2}
	s, err := scheduler.New("@every 5m", sw, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, s.RunOnce(context.Background()))
	assert.True(t, sw.bypass, "el barrido debe ver todas las empresas")
}

func TestRunOnce_ErrorNoPropaga(t *testing.T) {
	s, err := scheduler.New("@every 1m", &fakeSweeper{n: 3, err: errors.New("db caída")}, nil)
	require.NoError(t, err)
	assert.Zero(t, s.RunOnce(context.Background()))
}

func TestNew_ExpresionInvalida(t *testing.T) {
	_, err := scheduler.New("cada rato", &fakeSweeper{}, nil)
	assert.Error(t, err)
}
