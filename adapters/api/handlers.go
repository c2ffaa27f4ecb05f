package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tidwall/gjson"

	"actinvoting/domain/core"
	"actinvoting/internal/asymptotic"
	"actinvoting/internal/batch"
	apperrors "actinvoting/internal/errors"
	"actinvoting/internal/scenario"
)

const maxSeriesLength = 1000

// ClassificationResponse lists the adversaries by regime.
type ClassificationResponse struct {
	Subcritical   []int `json:"subcritical"`
	Critical      []int `json:"critical"`
	Supercritical []int `json:"supercritical"`
}

// SeriesResponse is one evaluated series.
type SeriesResponse struct {
	Key       string    `json:"key"`
	Kind      string    `json:"kind"`
	Ns        []int     `json:"ns"`
	Values    []float64 `json:"values"`
	StdErrs   []float64 `json:"std_errs,omitempty"`
	Cached    bool      `json:"cached"`
	ElapsedMs float64   `json:"elapsed_ms"`
}

// StudyResponse describes the scenario and the series computed for it.
type StudyResponse struct {
	Name           string                  `json:"name,omitempty"`
	Culture        string                  `json:"culture"`
	Candidate      int                     `json:"candidate"`
	Ring           string                  `json:"ring,omitempty"`
	Tau            []float64               `json:"tau,omitempty"`
	Zeta           []float64               `json:"zeta,omitempty"`
	Classification *ClassificationResponse `json:"classification,omitempty"`
	Asymptotics    []float64               `json:"asymptotics,omitempty"`
	Series         SeriesResponse          `json:"series"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"scenarios": scenario.Builtins()})
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	sc, err := scenario.LoadBuiltin(name)
	if err != nil {
		s.writeError(w, builtinError(name, err))
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleEquivalent(w http.ResponseWriter, r *http.Request) {
	sc, st, ok := s.openStudy(w, r)
	if !ok {
		return
	}
	resp, err := describe(sc, st)
	if err != nil {
		s.writeError(w, err)
		return
	}
	series, err := s.cfg.Runner.Equivalents(r.Context(), st, sc.Ns)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp.Series = seriesResponse(series)

	// two-term expansion when the study supports it
	if _, err := st.Asymptotics(sc.Ns[0]); err == nil {
		resp.Asymptotics = make([]float64, len(sc.Ns))
		for i, n := range sc.Ns {
			if resp.Asymptotics[i], err = st.Asymptotics(n); err != nil {
				s.writeError(w, err)
				return
			}
		}
	} else if !core.IsInvalidInput(err) {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExact(w http.ResponseWriter, r *http.Request) {
	sc, st, ok := s.openStudy(w, r)
	if !ok {
		return
	}
	series, err := s.cfg.Runner.Exact(r.Context(), st, sc.Ns)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StudyResponse{
		Name:      sc.Name,
		Culture:   st.Culture().String(),
		Candidate: st.Candidate(),
		Ring:      st.RingName(),
		Series:    seriesResponse(series),
	})
}

func (s *Server) handleMonteCarlo(w http.ResponseWriter, r *http.Request) {
	body, sc, ok := s.readScenario(w, r)
	if !ok {
		return
	}
	if sc.Samples < 1 {
		s.writeError(w, apperrors.InvalidInput("samples must be positive"))
		return
	}
	cul, err := sc.BuildCulture()
	if err != nil {
		s.writeError(w, err)
		return
	}
	alpha, err := sc.AlphaRats()
	if err != nil {
		s.writeError(w, err)
		return
	}
	seed := s.cfg.Seed
	if v := gjson.GetBytes(body, "seed"); v.Exists() {
		seed = v.Uint()
	}
	series, err := s.cfg.Runner.MonteCarlo(r.Context(), cul, sc.Candidate, alpha, sc.Ns, sc.Samples, seed)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StudyResponse{
		Name:      sc.Name,
		Culture:   cul.String(),
		Candidate: sc.Candidate,
		Series:    seriesResponse(series),
	})
}

func (s *Server) openStudy(w http.ResponseWriter, r *http.Request) (*scenario.Scenario, scenario.Study, bool) {
	_, sc, ok := s.readScenario(w, r)
	if !ok {
		return nil, nil, false
	}
	st, err := sc.Open(s.cfg.Options...)
	if err != nil {
		s.writeError(w, err)
		return nil, nil, false
	}
	return sc, st, true
}

// readScenario decodes the request body. A body with a "builtin" field starts
// from the embedded scenario of that name, with optional "ns" and "samples"
// overrides; any other body is a complete scenario.
func (s *Server) readScenario(w http.ResponseWriter, r *http.Request) ([]byte, *scenario.Scenario, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		s.writeError(w, apperrors.InvalidInput(fmt.Sprintf("failed to read body: %v", err)))
		return nil, nil, false
	}
	sc, err := decodeScenario(body)
	if err != nil {
		s.writeError(w, err)
		return nil, nil, false
	}
	if len(sc.Ns) == 0 || len(sc.Ns) > maxSeriesLength {
		s.writeError(w, apperrors.InvalidInput(fmt.Sprintf("ns must hold between 1 and %d voter counts", maxSeriesLength)))
		return nil, nil, false
	}
	return body, sc, true
}

func decodeScenario(body []byte) (*scenario.Scenario, error) {
	if !gjson.ValidBytes(body) {
		return nil, apperrors.InvalidInput("body is not valid JSON")
	}
	if name := gjson.GetBytes(body, "builtin"); name.Exists() {
		sc, err := scenario.LoadBuiltin(name.String())
		if err != nil {
			return nil, builtinError(name.String(), err)
		}
		if ns := gjson.GetBytes(body, "ns"); ns.Exists() {
			if !ns.IsArray() {
				return nil, apperrors.InvalidInput("ns must be an array")
			}
			sc.Ns = sc.Ns[:0:0]
			for _, v := range ns.Array() {
				sc.Ns = append(sc.Ns, int(v.Int()))
			}
		}
		if v := gjson.GetBytes(body, "samples"); v.Exists() {
			sc.Samples = int(v.Int())
		}
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		return sc, nil
	}

	if !gjson.GetBytes(body, "culture.kind").Exists() {
		return nil, apperrors.InvalidInput("culture.kind is required")
	}
	if gjson.GetBytes(body, "culture.file").Exists() {
		return nil, apperrors.InvalidInput("culture.file is not accepted over HTTP, send rankings instead")
	}
	return scenario.Parse(body)
}

func builtinError(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperrors.NotFound(fmt.Sprintf("scenario %q", name))
	}
	return err
}

func describe(sc *scenario.Scenario, st scenario.Study) (StudyResponse, error) {
	resp := StudyResponse{
		Name:      sc.Name,
		Culture:   st.Culture().String(),
		Candidate: st.Candidate(),
		Ring:      st.RingName(),
	}
	var err error
	if resp.Tau, err = st.Tau(); err != nil {
		return resp, err
	}
	if resp.Zeta, err = st.Zeta(); err != nil {
		return resp, err
	}
	var cl asymptotic.Classification
	if cl, err = st.Classification(); err != nil {
		return resp, err
	}
	resp.Classification = &ClassificationResponse{
		Subcritical:   nonNil(cl.Subcritical),
		Critical:      nonNil(cl.Critical),
		Supercritical: nonNil(cl.Supercritical),
	}
	return resp, nil
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

func seriesResponse(s *batch.Series) SeriesResponse {
	return SeriesResponse{
		Key:       s.Key,
		Kind:      string(s.Kind),
		Ns:        s.Ns,
		Values:    s.Values,
		StdErrs:   s.StdErrs,
		Cached:    s.Cached,
		ElapsedMs: float64(s.Elapsed.Microseconds()) / 1000,
	}
}

func statusFor(code string) int {
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodePrecisionMismatch:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeUnsupportedCase, apperrors.CodeCultureContract,
		apperrors.CodeNonConvergence, apperrors.CodeInvalidSaddle:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	err = apperrors.FromDomain(err)
	code := apperrors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
