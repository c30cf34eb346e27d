package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-gateway/internal/crawler"
)

const maxRequestBody = 1 << 20

// errValidation marks a request body that failed decoding or validation (422).
var errValidation = errors.New("invalid request")

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// absurl accepts any syntactically valid URL with both a scheme and a host.
	_ = v.RegisterValidation("absurl", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		return err == nil && u.Scheme != "" && u.Host != ""
	})
	return v
}

func (s *Server) crawl(w http.ResponseWriter, r *http.Request) {
	claims, _ := ClaimsFrom(r.Context())

	req, err := s.decodeCrawlRequest(w, r)
	if err != nil {
		s.logger.Info("crawl request rejected",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("client_id", claims.ClientID),
			zap.Error(err),
		)
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	isDocument := false
	if req.WantsAutoparsePDF() && s.classifier != nil {
		isDocument = s.classifier.Classify(r.Context(), req.URL)
	}

	content, err := s.dispatcher.Dispatch(r.Context(), claims.ClientID, req, isDocument)
	if err != nil {
		var crawlErr *crawler.CrawlError
		if !errors.As(err, &crawlErr) {
			crawlErr = crawler.NewCrawlError(crawler.StrategyFor(isDocument), req.URL, err)
		}
		s.writeError(w, http.StatusOK, crawlErr.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, content)
}

func (s *Server) decodeCrawlRequest(w http.ResponseWriter, r *http.Request) (crawler.CrawlRequest, error) {
	var req crawler.CrawlRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		return crawler.CrawlRequest{}, fmt.Errorf("%w: %s", errValidation, describeDecodeError(err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return crawler.CrawlRequest{}, fmt.Errorf("%w: body must contain a single JSON object", errValidation)
	}
	if err := s.validate.Struct(req); err != nil {
		return crawler.CrawlRequest{}, fmt.Errorf("%w: %s", errValidation, describeValidationError(err))
	}
	return req, nil
}

func describeDecodeError(err error) string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		maxErr    *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return "body is empty"
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return fmt.Sprintf("field %q must be %s", typeErr.Field, typeErr.Type)
		}
		return "body must be a JSON object"
	case errors.As(err, &maxErr):
		return fmt.Sprintf("body exceeds %d bytes", maxErr.Limit)
	default:
		return "malformed JSON"
	}
}

func describeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "absurl":
			msgs = append(msgs, fmt.Sprintf("%s must be an absolute URL", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
