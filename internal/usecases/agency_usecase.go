package usecases

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"agency-proxy.backend/internal/domain/entities"
	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/domain/repositories"
	"agency-proxy.backend/pkg/logger"
)

// ErrQueryRequired is returned when a search has no q parameter
var ErrQueryRequired = domainerrors.BadRequest(`Parámetro de búsqueda "q" es requerido`)

// DatasetRefresher triggers and describes the dataset download schedule
type DatasetRefresher interface {
	RunOnce(ctx context.Context) (int, error)
	NextRun() *time.Time
	Schedule() string
}

// FrontListing is the payload served to the site's own frontend
type FrontListing struct {
	Success   bool               `json:"success"`
	Data      []*entities.Agency `json:"data"`
	Total     int                `json:"total"`
	Timestamp time.Time          `json:"timestamp"`
}

// SyncResult describes a manual refresh
type SyncResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Records   int       `json:"records"`
	Timestamp time.Time `json:"timestamp"`
}

type AgencyUsecase struct {
	store     repositories.DatasetStore
	refresher DatasetRefresher
	now       func() time.Time
}

func NewAgencyUsecase(store repositories.DatasetStore, refresher DatasetRefresher) *AgencyUsecase {
	return &AgencyUsecase{store: store, refresher: refresher, now: time.Now}
}

// SearchByName matches enabled agencies whose nombre contains q, case-insensitively
func (u *AgencyUsecase) SearchByName(ctx context.Context, q string) (*entities.AgencySearchResult, error) {
	if q == "" {
		return nil, ErrQueryRequired
	}
	needle := strings.ToLower(q)
	res, err := u.filter(ctx, func(a *entities.Agency) bool {
		return strings.Contains(strings.ToLower(a.Nombre), needle)
	})
	if err != nil {
		return nil, err
	}
	return &entities.AgencySearchResult{Query: q, CampoBusqueda: "nombre", Total: len(res), Resultados: res}, nil
}

// Search matches enabled agencies on any of the descriptive fields
func (u *AgencyUsecase) Search(ctx context.Context, q string) (*entities.AgencySearchResult, error) {
	if q == "" {
		return nil, ErrQueryRequired
	}
	needle := strings.ToLower(q)
	res, err := u.filter(ctx, func(a *entities.Agency) bool {
		for _, field := range []string{a.LugarOver, a.Nombre, a.Direccion, a.Telefono, a.HoraAtencion, a.HoraDomingo} {
			if strings.Contains(strings.ToLower(field), needle) {
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	return &entities.AgencySearchResult{Query: q, Total: len(res), Resultados: res}, nil
}

// Raw returns the snapshot exactly as published upstream
func (u *AgencyUsecase) Raw(ctx context.Context) (json.RawMessage, error) {
	return u.store.Raw(ctx)
}

// FrontList returns every record, enabled or not
func (u *AgencyUsecase) FrontList(ctx context.Context) (*FrontListing, error) {
	all, err := u.store.Agencies(ctx)
	if err != nil {
		return nil, err
	}
	return &FrontListing{Success: true, Data: all, Total: len(all), Timestamp: u.now().UTC()}, nil
}

// Sync downloads the dataset now
func (u *AgencyUsecase) Sync(ctx context.Context) (*SyncResult, error) {
	n, err := u.refresher.RunOnce(ctx)
	if err != nil {
		logger.Error(ctx, "Manual dataset sync failed", zap.Error(err))
		return nil, err
	}
	return &SyncResult{
		Success:   true,
		Message:   "dataset synchronized",
		Records:   n,
		Timestamp: u.now().UTC(),
	}, nil
}

// Status reports the served snapshot and the refresh schedule
func (u *AgencyUsecase) Status() entities.DatasetStatus {
	st := u.store.Status()
	if u.refresher != nil {
		st.Schedule = u.refresher.Schedule()
		st.NextRefresh = u.refresher.NextRun()
	}
	return st
}

func (u *AgencyUsecase) filter(ctx context.Context, match func(*entities.Agency) bool) ([]*entities.Agency, error) {
	all, err := u.store.Agencies(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Agency, 0)
	for _, a := range all {
		if a.Enabled() && match(a) {
			out = append(out, a)
		}
	}
	return out, nil
}
