// Package scheduler ejecuta tareas periódicas de plataforma con contexto de sistema.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/jhoicas/zentral/internal/tenancy"
	"github.com/jhoicas/zentral/pkg/logger"
)

// PauseSweeper pausa las empresas con pausa programada o suscripción vencida.
// Lo implementa *usecase.CompanyUseCase.
type PauseSweeper interface {
	SweepPauses(ctx context.Context) (int, error)
}

// Scheduler envuelve un cron con el barrido de pausas registrado.
type Scheduler struct {
	cron    *cron.Cron
	sweeper PauseSweeper
	log     *logger.Logger
}

// New registra el barrido con la expresión spec (ej. "@every 5m").
func New(spec string, sweeper PauseSweeper, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		sweeper: sweeper,
		log:     log.Component("scheduler"),
	}
	if _, err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("scheduler: expresión inválida %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce ejecuta un barrido. El barrido recorre todas las empresas, por eso corre como sistema.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	n, err := s.sweeper.SweepPauses(tenancy.SystemContext(ctx))
	if err != nil {
		s.log.Error().Err(err).Msg("barrido de pausas")
		return 0
	}
	if n > 0 {
		s.log.Info().Int("paused", n).Msg("empresas pausadas por vencimiento")
	}
	return n
}

// Start arranca el cron en segundo plano.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop detiene el cron; el contexto devuelto termina cuando acaba el barrido en curso.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }
