package entities

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Agency is one record of the upstream directory. Raw keeps the record exactly as published;
// the typed fields are the ones searches look at.
type Agency struct {
	Raw json.RawMessage

	TerID        string
	Nombre       string
	LugarOver    string
	Direccion    string
	Telefono     string
	HoraAtencion string
	HoraDomingo  string
	enabled      bool
}

// ParseAgency extracts the searchable fields of an upstream record.
// Upstream is loosely typed, so every field is read as text.
func ParseAgency(raw json.RawMessage) (*Agency, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode agency: %w", err)
	}
	return &Agency{
		Raw:          raw,
		TerID:        textField(fields["ter_id"]),
		Nombre:       textField(fields["nombre"]),
		LugarOver:    textField(fields["lugar_over"]),
		Direccion:    textField(fields["direccion"]),
		Telefono:     textField(fields["telefono"]),
		HoraAtencion: textField(fields["hora_atencion"]),
		HoraDomingo:  textField(fields["hora_domingo"]),
		enabled:      enabledFlag(fields["ter_habilitado_OS"]),
	}, nil
}

// Enabled is false only when the upstream explicitly flags the agency with 0
func (a *Agency) Enabled() bool {
	return a.enabled
}

// MarshalJSON emits the upstream record untouched
func (a *Agency) MarshalJSON() ([]byte, error) {
	if len(a.Raw) == 0 {
		return []byte("null"), nil
	}
	return a.Raw, nil
}

func textField(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func enabledFlag(v interface{}) bool {
	switch t := v.(type) {
	case float64:
		return t != 0
	case string:
		n, err := strconv.ParseFloat(t, 64)
		return err != nil || n != 0
	case bool:
		return t
	default:
		return true
	}
}

// AgencySearchResult is the body of the search endpoints
type AgencySearchResult struct {
	Query         string    `json:"query"`
	CampoBusqueda string    `json:"campo_busqueda,omitempty"`
	Total         int       `json:"total"`
	Resultados    []*Agency `json:"resultados"`
}

// DatasetStatus describes the snapshot currently served
type DatasetStatus struct {
	Path        string     `json:"path"`
	Records     int        `json:"records"`
	LoadedAt    *time.Time `json:"loadedAt,omitempty"`
	RefreshedAt *time.Time `json:"refreshedAt,omitempty"`
	NextRefresh *time.Time `json:"nextRefresh,omitempty"`
	Schedule    string     `json:"schedule"`
}
