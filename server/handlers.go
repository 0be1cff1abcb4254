package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/peakwhale/harbor/inference"
	"github.com/peakwhale/harbor/pkg/errors"
	"github.com/peakwhale/harbor/pkg/log"
	"github.com/peakwhale/harbor/schema"
)

const (
	msgWrongShape = "Expected JSON body with key 'data' as an object."
	msgMissing    = "Missing required features."
	msgTooLarge   = "Request body too large."

	endpointAPI  = "predict_api"
	endpointForm = "predict"
)

type errorBody struct {
	Error            string   `json:"error"`
	Field            string   `json:"field,omitempty"`
	Missing          []string `json:"missing,omitempty"`
	RequiredFeatures []string `json:"required_features,omitempty"`
}

type healthBody struct {
	Status string `json:"status"`
	App    string `json:"app"`
}

type schemaBody struct {
	App              string           `json:"app"`
	Target           schema.Target    `json:"target"`
	Features         []schema.Feature `json:"features"`
	RequiredFeatures []string         `json:"required_features"`
	ExampleRequest   exampleRequest   `json:"example_request"`
	ExampleResponse  inference.Result `json:"example_response"`
}

type exampleRequest struct {
	Data schema.FeatureRow `json:"data"`
}

func (s *Server) buildSchemaDoc() ([]byte, error) {
	in := make(map[string]any)
	for _, f := range s.schema.Features() {
		in[f.Name] = f.Placeholder
	}
	row, err := s.schema.BuildRow(in)
	if err != nil {
		return nil, errors.Wrap(err, "build example request from placeholders")
	}
	res, err := s.predictor.Predict(context.Background(), row)
	if err != nil {
		return nil, errors.Wrap(err, "compute example response")
	}

	doc, err := json.Marshal(schemaBody{
		App:              AppName,
		Target:           s.schema.Target(),
		Features:         s.schema.Features(),
		RequiredFeatures: s.schema.Names(),
		ExampleRequest:   exampleRequest{Data: row},
		ExampleResponse:  res,
	})
	return doc, errors.WithStack(err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{Status: "ok", App: AppName})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(s.schemaDoc)
}

func (s *Server) handlePredictAPI(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		s.metrics.latency.WithLabelValues(endpointAPI).Observe(time.Since(start).Seconds())
	}()

	data, err := decodeData(r)
	if err != nil {
		s.countPrediction(endpointAPI, outcomeValidationError)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: msgTooLarge})
			return
		}
		writeJSON(w, http.StatusBadRequest, s.validationBody(err))
		return
	}

	row, err := s.schema.BuildRow(data)
	if err != nil {
		s.countPrediction(endpointAPI, outcomeValidationError)
		writeJSON(w, http.StatusBadRequest, s.validationBody(err))
		return
	}

	res, err := s.predictor.Predict(r.Context(), row)
	if err != nil {
		s.countPrediction(endpointAPI, outcomePredictionError)
		s.requestLogger(r).Warn("prediction failed", log.ErrorKey, err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	s.countPrediction(endpointAPI, outcomeSuccess)
	writeJSON(w, http.StatusOK, res)
}

// decodeData reads a JSON body of the form {"data": {...}}. Anything else,
// including trailing content and non-JSON media types, is a shape error.
func decodeData(r *http.Request) (map[string]any, error) {
	if !isJSONMediaType(r.Header.Get("Content-Type")) {
		return nil, errors.NewShapeValidationError(msgWrongShape)
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, shapeError(err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, shapeError(err)
	}

	data, ok := payload["data"].(map[string]any)
	if !ok {
		return nil, errors.NewShapeValidationError(msgWrongShape)
	}
	return data, nil
}

func shapeError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errors.WithStack(err)
	}
	return errors.NewShapeValidationError(msgWrongShape)
}

func isJSONMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func (s *Server) validationBody(err error) errorBody {
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		return errorBody{Error: err.Error()}
	}
	if len(ve.Missing) > 0 {
		return errorBody{
			Error:            msgMissing,
			Missing:          ve.Missing,
			RequiredFeatures: s.schema.Names(),
		}
	}
	return errorBody{Error: ve.Error(), Field: ve.Field}
}

// formField is one input of the rendered form.
type formField struct {
	schema.Feature
	Value string
}

type pageData struct {
	AppName string
	Target  schema.Target
	Fields  []formField
	Message string
	IsError bool
}

func (s *Server) page(values map[string]string) pageData {
	features := s.schema.Features()
	fields := make([]formField, len(features))
	for i, f := range features {
		fields[i] = formField{Feature: f, Value: values[f.Name]}
	}
	return pageData{AppName: AppName, Target: s.schema.Target(), Fields: fields}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, s.page(nil))
}

func (s *Server) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		s.metrics.latency.WithLabelValues(endpointForm).Observe(time.Since(start).Seconds())
	}()

	if err := r.ParseForm(); err != nil {
		s.countPrediction(endpointForm, outcomeValidationError)
		data := s.page(nil)
		data.Message, data.IsError = "Input error: "+err.Error(), true
		s.render(w, r, data)
		return
	}

	values := make(map[string]string)
	for _, name := range s.schema.Names() {
		if v, ok := r.PostForm[name]; ok && len(v) > 0 {
			values[name] = v[0]
		}
	}
	data := s.page(values)

	row, err := s.schema.BuildRowFromStrings(values)
	if err != nil {
		s.countPrediction(endpointForm, outcomeValidationError)
		data.Message, data.IsError = "Input error: "+err.Error(), true
		s.render(w, r, data)
		return
	}

	res, err := s.predictor.Predict(r.Context(), row)
	if err != nil {
		s.countPrediction(endpointForm, outcomePredictionError)
		s.requestLogger(r).Warn("prediction failed", log.ErrorKey, err)
		data.Message, data.IsError = "Input error: "+err.Error(), true
		s.render(w, r, data)
		return
	}

	s.countPrediction(endpointForm, outcomeSuccess)
	data.Message = fmt.Sprintf("Predicted %s: %.2f %s", res.Target.Name, res.Prediction, res.Target.Units)
	s.render(w, r, data)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, data pageData) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "home.html", data); err != nil {
		s.requestLogger(r).Error("render page", log.ErrorKey, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (s *Server) countPrediction(endpoint, outcome string) {
	s.metrics.predictions.WithLabelValues(endpoint, outcome).Inc()
}

func (s *Server) requestLogger(r *http.Request) log.Logger {
	return s.logger.With(log.RequestIDKey, RequestID(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
