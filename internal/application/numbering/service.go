// Package numbering emite los números de documento: reserva atómica en el
// SequenceStore y formateo con la plantilla del tenant.
package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/erp-tn-api/internal/application/dto"
	"github.com/jhoicas/erp-tn-api/internal/application/ports"
	"github.com/jhoicas/erp-tn-api/internal/domain"
	"github.com/jhoicas/erp-tn-api/internal/domain/entity"
	"github.com/jhoicas/erp-tn-api/internal/domain/numbering"
	"github.com/jhoicas/erp-tn-api/internal/domain/repository"
	"github.com/jhoicas/erp-tn-api/pkg/logger"
)

// Service emite números de documento.
type Service struct {
	store     repository.SequenceStore
	counters  repository.SequenceRepository // opcional: administración del contador
	templates repository.NumberingTemplateRepository
	metrics   ports.Metrics
	log       *logger.Logger
	now       func() time.Time
}

// NewService construye el servicio. Con counters nil la API no puede leer ni fijar la base.
func NewService(
	store repository.SequenceStore,
	counters repository.SequenceRepository,
	templates repository.NumberingTemplateRepository,
	metrics ports.Metrics,
	log *logger.Logger,
) *Service {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:     store,
		counters:  counters,
		templates: templates,
		metrics:   metrics,
		log:       log.Named("numbering"),
		now:       time.Now,
	}
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NextNumber reserva el siguiente valor de (tenant, tipo) y lo formatea.
// Si el incremento no se registra devuelve ErrSequencePersistence y ningún número;
// el caller no debe derivar uno por su cuenta.
// Un número reservado cuyo documento luego falla no se reutiliza.
func (s *Service) NextNumber(ctx context.Context, tenantID string, kind entity.Kind) (string, error) {
	if tenantID == "" {
		return "", domain.ErrInvalidInput
	}
	if _, err := kind.Policy(); err != nil {
		return "", err
	}

	// La plantilla se resuelve antes de reservar: un error de configuración no consume números.
	tpl, _, err := s.effectiveTemplate(ctx, tenantID, kind)
	if err != nil {
		s.metrics.NumberingFailed(kind.String())
		return "", err
	}

	seq, err := s.store.Next(ctx, tenantID, kind)
	if err != nil {
		s.metrics.NumberingFailed(kind.String())
		s.log.Error().Err(err).Str("tenant_id", tenantID).Str("kind", kind.String()).Msg("no se pudo incrementar el contador")
		return "", fmt.Errorf("%w: %w", domain.ErrSequencePersistence, err)
	}

	number, err := numbering.Format(tpl, s.now(), seq)
	if err != nil {
		s.metrics.NumberingFailed(kind.String())
		s.log.Error().Err(err).Str("tenant_id", tenantID).Str("kind", kind.String()).Int64("seq", seq).Msg("plantilla inválida tras reservar")
		return "", err
	}

	s.metrics.NumberIssued(kind.String())
	s.log.Debug().Str("tenant_id", tenantID).Str("kind", kind.String()).Str("number", number).Int64("seq", seq).Msg("número emitido")
	return number, nil
}

// GetTemplate devuelve la plantilla efectiva y una vista previa del siguiente número.
func (s *Service) GetTemplate(ctx context.Context, tenantID string, kind entity.Kind) (*dto.NumberingTemplateResponse, error) {
	if _, err := kind.Policy(); err != nil {
		return nil, err
	}
	tpl, isDefault, err := s.effectiveTemplate(ctx, tenantID, kind)
	if err != nil {
		return nil, err
	}

	var last int64
	next := int64(1)
	if s.counters != nil {
		c, err := s.counters.Get(ctx, tenantID, kind)
		if err != nil {
			return nil, fmt.Errorf("leer contador: %w", err)
		}
		if c != nil {
			last = c.Value
			next = c.Value + 1
			if c.Base > next {
				next = c.Base
			}
		}
	}

	preview, err := numbering.Format(tpl, s.now(), next)
	if err != nil {
		return nil, err
	}
	return &dto.NumberingTemplateResponse{
		Kind:      kind.String(),
		Template:  tpl,
		IsDefault: isDefault,
		Preview:   preview,
		LastValue: last,
	}, nil
}

// SetTemplate valida y guarda la plantilla del tenant; opcionalmente fija la base del contador.
// La plantilla se guarda antes que la base: si la plantilla falla, el contador no cambia.
// Si falla la base, la plantilla ya quedó guardada y reintentar es idempotente.
func (s *Service) SetTemplate(ctx context.Context, tenantID string, kind entity.Kind, in dto.SetNumberingTemplateRequest) (*dto.NumberingTemplateResponse, error) {
	if _, err := kind.Policy(); err != nil {
		return nil, err
	}
	if err := numbering.ValidateTemplate(in.Template); err != nil {
		return nil, err
	}
	if in.Base != nil {
		if s.counters == nil {
			return nil, fmt.Errorf("%w: el backend de numeración no admite fijar la base", domain.ErrConflict)
		}
		if *in.Base < 1 {
			return nil, domain.ErrInvalidInput
		}
	}

	err := s.templates.Upsert(ctx, &entity.NumberingTemplate{
		TenantID:  tenantID,
		Kind:      kind,
		Template:  in.Template,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("guardar plantilla: %w", err)
	}
	if in.Base != nil {
		if err := s.counters.SetBase(ctx, tenantID, kind, *in.Base); err != nil {
			return nil, fmt.Errorf("fijar base: %w", err)
		}
	}
	s.log.Info().Str("tenant_id", tenantID).Str("kind", kind.String()).Str("template", in.Template).Msg("plantilla de numeración actualizada")
	return s.GetTemplate(ctx, tenantID, kind)
}

func (s *Service) effectiveTemplate(ctx context.Context, tenantID string, kind entity.Kind) (string, bool, error) {
	if s.templates != nil {
		t, err := s.templates.Get(ctx, tenantID, kind)
		if err != nil {
			return "", false, fmt.Errorf("leer plantilla: %w", err)
		}
		if t != nil && t.Template != "" {
			return t.Template, false, nil
		}
	}
	def, err := numbering.DefaultTemplate(kind)
	if err != nil {
		return "", false, err
	}
	return def, true, nil
}
