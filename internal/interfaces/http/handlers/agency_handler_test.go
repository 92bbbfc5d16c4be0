package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"agency-proxy.backend/internal/domain/entities"
	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/internal/usecases"
)

type agencyServiceStub struct {
	searchByNameFn func(ctx context.Context, q string) (*entities.AgencySearchResult, error)
	searchFn       func(ctx context.Context, q string) (*entities.AgencySearchResult, error)
	raw            json.RawMessage
	err            error
}

func (s *agencyServiceStub) SearchByName(ctx context.Context, q string) (*entities.AgencySearchResult, error) {
	return s.searchByNameFn(ctx, q)
}

func (s *agencyServiceStub) Search(ctx context.Context, q string) (*entities.AgencySearchResult, error) {
	return s.searchFn(ctx, q)
}

func (s *agencyServiceStub) Raw(context.Context) (json.RawMessage, error) {
	return s.raw, s.err
}

func (s *agencyServiceStub) FrontList(context.Context) (*usecases.FrontListing, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &usecases.FrontListing{Success: true, Data: []*entities.Agency{}, Total: 0, Timestamp: time.Now()}, nil
}

func newAgencyRouter(svc AgencyService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAgencyHandler(svc)
	r := gin.New()
	r.GET("/api/agencia", h.SearchByName)
	r.GET("/api/buscar", h.Search)
	r.GET("/api/listar", h.List)
	r.GET("/api/front", h.Front)
	return r
}

func doGet(r http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAgencyHandler_SearchByName(t *testing.T) {
	agency, err := entities.ParseAgency(json.RawMessage(`{"ter_id":7,"nombre":"LIMA"}`))
	require.NoError(t, err)

	svc := &agencyServiceStub{
		searchByNameFn: func(_ context.Context, q string) (*entities.AgencySearchResult, error) {
			if q == "" {
				return nil, usecases.ErrQueryRequired
			}
			return &entities.AgencySearchResult{Query: q, CampoBusqueda: "nombre", Total: 1, Resultados: []*entities.Agency{agency}}, nil
		},
	}
	r := newAgencyRouter(svc)

	rec := doGet(r, "/api/agencia?q=lima")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"query":"lima","campo_busqueda":"nombre","total":1,"resultados":[{"ter_id":7,"nombre":"LIMA"}]}`, rec.Body.String())

	rec = doGet(r, "/api/agencia")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), domainerrors.CodeInvalidInput)
}

func TestAgencyHandler_SearchErrors(t *testing.T) {
	svc := &agencyServiceStub{
		searchFn: func(context.Context, string) (*entities.AgencySearchResult, error) {
			return nil, domainerrors.ErrDatasetUnavailable
		},
	}
	rec := doGet(newAgencyRouter(svc), "/api/buscar?q=x")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "no data available")
}

func TestAgencyHandler_ListServesSnapshotVerbatim(t *testing.T) {
	doc := `{"data":[{"ter_id":1}],"extra":"kept"}`
	rec := doGet(newAgencyRouter(&agencyServiceStub{raw: json.RawMessage(doc)}), "/api/listar")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, doc, rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = doGet(newAgencyRouter(&agencyServiceStub{err: domainerrors.ErrDatasetUnavailable}), "/api/listar")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAgencyHandler_Front(t *testing.T) {
	rec := doGet(newAgencyRouter(&agencyServiceStub{}), "/api/front")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["success"])
	require.Contains(t, body, "timestamp")

	rec = doGet(newAgencyRouter(&agencyServiceStub{err: domainerrors.ErrDatasetUnavailable}), "/api/front")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
