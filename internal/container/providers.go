package container

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/application/automatisering"
	"github.com/karl-run/spesialist/internal/application/dispatcher"
	"github.com/karl-run/spesialist/internal/application/mediator"
	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/application/service"
	"github.com/karl-run/spesialist/internal/config"
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/domain/event"
	"github.com/karl-run/spesialist/internal/infrastructure/bus"
	"github.com/karl-run/spesialist/internal/infrastructure/persistence/repository"
	"github.com/karl-run/spesialist/internal/infrastructure/persistence/sqlite"
	"github.com/karl-run/spesialist/pkg/database"
)

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Person            port.PersonRepository
	Hendelse          port.HendelseRepository
	Kontekst          port.KontekstRepository
	Generasjon        port.GenerasjonRepository
	Varsel            port.VarselRepository
	Oppgave           port.OppgaveRepository
	Reservasjon       port.ReservasjonRepository
	Saksbehandler     port.SaksbehandlerRepository
	Totrinnsvurdering port.TotrinnsvurderingRepository
	Automatisering    port.AutomatiseringRepository
	Overstyring       port.OverstyringRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Oppgaver          *service.OppgaveService
	Totrinnsvurdering *service.TotrinnsvurderingService
	Generasjoner      *service.GenerasjonService
	Automatisering    *automatisering.Service
}

// ProvideDatabase opens the database, runs migrations and returns the
// connection together with the transaction manager.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*database.DB, *sqlite.DB, error) {
	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.MigrationsDir); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, sqlite.NewDB(db.DB, logger), nil
}

// ProvideRepositories creates all sqlite repositories.
func ProvideRepositories(db *sql.DB, logger *zap.Logger) *RepositoryBundle {
	return &RepositoryBundle{
		Person:            repository.NewPersonRepository(db, logger),
		Hendelse:          repository.NewHendelseRepository(db, logger),
		Kontekst:          repository.NewKontekstRepository(db, logger),
		Generasjon:        repository.NewGenerasjonRepository(db, logger),
		Varsel:            repository.NewVarselRepository(db, logger),
		Oppgave:           repository.NewOppgaveRepository(db, logger),
		Reservasjon:       repository.NewReservasjonRepository(db, logger),
		Saksbehandler:     repository.NewSaksbehandlerRepository(db, logger),
		Totrinnsvurdering: repository.NewTotrinnsvurderingRepository(db, logger),
		Automatisering:    repository.NewAutomatiseringRepository(db, logger),
		Overstyring:       repository.NewOverstyringRepository(db, logger),
	}
}

// ProvideServices creates all application services.
func ProvideServices(repos *RepositoryBundle, txManager *sqlite.DB, cfg *config.AutomatiseringConfig, logger *zap.Logger) *ServiceBundle {
	adapter := &loggerAdapter{logger}

	stikkprover := automatisering.NyStikkprover(automatisering.Divisorer{
		UtbetalingTilSykmeldt:     cfg.StikkproveUtbetalingTilSykmeldt,
		UtbetalingTilArbeidsgiver: cfg.StikkproveUtbetalingTilArbeidsgiver,
		UtbetalingTilBegge:        cfg.StikkproveUtbetalingTilBegge,
		FlereArbeidsgivere:        cfg.StikkproveFlereArbeidsgivere,
		Forstegangsbehandling:     cfg.StikkproveForstegangsbehandling,
	})

	oppgaver := service.NewOppgaveService(repos.Oppgave, repos.Reservasjon, txManager, adapter)

	return &ServiceBundle{
		Oppgaver: oppgaver,
		Totrinnsvurdering: service.NewTotrinnsvurderingService(
			repos.Totrinnsvurdering, repos.Oppgave, repos.Saksbehandler, oppgaver, txManager, adapter),
		Generasjoner:   service.NewGenerasjonService(repos.Generasjon, repos.Varsel, txManager, adapter),
		Automatisering: automatisering.NewService(repos.Automatisering, stikkprover, adapter),
	}
}

// ProvideMediator creates the mediator with the bus parser as hendelse
// reconstructor for resumed contexts.
func ProvideMediator(
	repos *RepositoryBundle,
	services *ServiceBundle,
	txManager *sqlite.DB,
	publisher *bus.Publisher,
	disp dispatcher.Dispatcher,
	logger *zap.Logger,
) *mediator.Mediator {
	return mediator.New(mediator.Deps{
		HendelseRepo:      repos.Hendelse,
		KontekstRepo:      repos.Kontekst,
		PersonRepo:        repos.Person,
		OppgaveRepo:       repos.Oppgave,
		GenerasjonRepo:    repos.Generasjon,
		VarselRepo:        repos.Varsel,
		OverstyringRepo:   repos.Overstyring,
		SaksbehandlerRepo: repos.Saksbehandler,
		TotrinnsRepo:      repos.Totrinnsvurdering,
		TxManager:         txManager,

		Oppgaver:       services.Oppgaver,
		Generasjoner:   services.Generasjoner,
		Automatisering: services.Automatisering,

		Publisher:  publisher,
		Dispatcher: disp,
		Rekonstruer: func(navn string, melding []byte) (entity.Hendelse, error) {
			return bus.Parse(melding)
		},
		Logger: &loggerAdapter{logger},
	})
}

// registerObservers subscribes the outbound notification handlers. Task
// lifecycle events are mirrored onto the bus so caseworker surfaces can
// refresh; decisions are logged for audit trails.
func registerObservers(disp dispatcher.Dispatcher, publisher *bus.Publisher, logger *zap.Logger) {
	oppgaveMelding := func(ctx context.Context, evt event.Event) error {
		return publisher.Publiser(ctx, port.UtgaaendeMelding{
			EventName:     "oppgave_oppdatert",
			Fodselsnummer: evt.Fodselsnummer,
			Payload: map[string]any{
				"oppgaveId":  evt.PayloadInt("oppgave_id"),
				"hendelseId": evt.HendelseID.String(),
			},
		})
	}
	disp.SubscribeNamed(event.TypeOppgaveOpprettet, "oppgave-melding", oppgaveMelding)
	disp.SubscribeNamed(event.TypeOppgaveOppdatert, "oppgave-melding", oppgaveMelding)

	disp.SubscribeNamed(event.TypeVedtaksperiodeGodkjent, "vedtak-logg", func(ctx context.Context, evt event.Event) error {
		logger.Info("Vedtaksperiode godkjent",
			zap.String("hendelse_id", evt.HendelseID.String()),
			zap.String("vedtaksperiode_id", evt.PayloadString("vedtaksperiode_id")))
		return nil
	})
	disp.SubscribeNamed(event.TypeVedtaksperiodeAvvist, "vedtak-logg", func(ctx context.Context, evt event.Event) error {
		logger.Info("Vedtaksperiode avvist",
			zap.String("hendelse_id", evt.HendelseID.String()),
			zap.String("vedtaksperiode_id", evt.PayloadString("vedtaksperiode_id")))
		return nil
	})
}
