package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/agenthands/exoseek/internal/batch"
	"github.com/agenthands/exoseek/internal/form"
	"github.com/agenthands/exoseek/internal/ginx"
	"github.com/agenthands/exoseek/internal/inference"
	"github.com/agenthands/exoseek/internal/ingest"
	"github.com/agenthands/exoseek/internal/logger"
	"github.com/agenthands/exoseek/internal/session"
	"github.com/gin-gonic/gin"
)

// UpdateFormRequest carries raw input text per feature. JSON numbers are
// accepted as well and parsed the same way.
type UpdateFormRequest struct {
	Values map[string]json.RawMessage `json:"values" binding:"required,min=1"`
}

func (s *Server) GetSchema(c *gin.Context) {
	sch := s.Service.Schema
	ginx.Success(c, SchemaView{
		Features:       sch.Descriptors(),
		PreviewColumns: sch.Head(previewColumns),
	})
}

func (s *Server) CreateSession(c *gin.Context) {
	sess := s.Sessions.Create()
	s.log.Infof(logger.WithSession(c.Request.Context(), sess.ID), "session created, %d active", s.Sessions.Len())

	var view FormView
	_ = sess.WithForm(func(m *form.Model) error {
		view = newFormView(sess, m)
		return nil
	})
	ginx.Created(c, view)
}

// EndSession drops the session with its form and upload. A prediction still
// in flight completes against the detached session and is discarded.
func (s *Server) EndSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	s.Sessions.Delete(sess.ID)
	s.log.Infof(logger.WithSession(c.Request.Context(), sess.ID), "session ended, %d active", s.Sessions.Len())
	c.Status(http.StatusNoContent)
}

func (s *Server) GetForm(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var view FormView
	_ = sess.WithForm(func(m *form.Model) error {
		view = newFormView(sess, m)
		return nil
	})
	ginx.Success(c, view)
}

func (s *Server) UpdateForm(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	var req UpdateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}

	var (
		details []ginx.ErrorDetail
		view    FormView
	)
	_ = sess.WithForm(func(m *form.Model) error {
		keys := make([]string, 0, len(req.Values))
		for key := range req.Values {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := m.SetField(key, rawText(req.Values[key])); err != nil {
				details = append(details, ginx.ErrorDetail{Path: key, Info: fieldMessage(err)})
			}
		}
		view = newFormView(sess, m)
		return nil
	})

	if len(details) > 0 {
		ginx.ErrorWithDetails(c, http.StatusUnprocessableEntity, "Some fields were not updated", details, view)
		return
	}
	ginx.Success(c, view)
}

func (s *Server) ResetForm(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var view FormView
	_ = sess.WithForm(func(m *form.Model) error {
		m.Reset()
		view = newFormView(sess, m)
		return nil
	})
	ginx.Success(c, view)
}

func (s *Server) Predict(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	res, err := s.Service.Predict(c.Request.Context(), sess)
	if err != nil {
		_ = c.Error(err)
		if errors.Is(err, session.ErrInFlight) {
			ginx.Conflict(c, err.Error())
			return
		}
		s.gatewayError(c, err, nil)
		return
	}
	ginx.Success(c, newResultView(res))
}

func (s *Server) Upload(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	if s.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxBytes)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ginx.Error(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", s.MaxBytes))
			return
		}
		ginx.BadRequest(c, "a CSV file is required in form field \"file\"")
		return
	}

	f, err := fh.Open()
	if err != nil {
		ginx.InternalError(c, "failed to open upload")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		ginx.InternalError(c, "failed to read upload")
		return
	}

	up, err := s.Service.Load(c.Request.Context(), sess, fh.Filename, data)
	if err != nil {
		_ = c.Error(err)
		var mc *ingest.MissingColumnsError
		if errors.As(err, &mc) {
			details := make([]ginx.ErrorDetail, len(mc.Columns))
			for i, col := range mc.Columns {
				details[i] = ginx.ErrorDetail{Path: col, Info: "column is missing"}
			}
			ginx.ErrorWithDetails(c, http.StatusBadRequest, err.Error(), details, nil)
			return
		}
		ginx.BadRequest(c, err.Error())
		return
	}
	ginx.Success(c, newBatchView(s.Service.Schema, up))
}

func (s *Server) GetBatch(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	up, err := sess.Upload()
	if err != nil {
		ginx.NotFound(c, err.Error())
		return
	}
	ginx.Success(c, newBatchView(s.Service.Schema, up))
}

func (s *Server) AnalyzeBatch(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	up, err := sess.Upload()
	if err != nil {
		ginx.BadRequest(c, err.Error())
		return
	}

	if _, err := s.Service.Analyze(c.Request.Context(), sess); err != nil {
		_ = c.Error(err)
		switch {
		case errors.Is(err, batch.ErrInFlight), errors.Is(err, batch.ErrAlreadyScored):
			ginx.Conflict(c, err.Error())
		case errors.Is(err, batch.ErrEmpty), errors.Is(err, session.ErrNoBatch):
			ginx.BadRequest(c, err.Error())
		default:
			view := newBatchView(s.Service.Schema, up)
			s.gatewayError(c, err, view)
		}
		return
	}
	ginx.Success(c, newBatchView(s.Service.Schema, up))
}

func (s *Server) session(c *gin.Context) (*session.Session, bool) {
	sess, err := s.Sessions.Get(c.Param("id"))
	if err != nil {
		ginx.NotFound(c, err.Error())
		return nil, false
	}
	return sess, true
}

// gatewayError reports a classification service failure verbatim.
func (s *Server) gatewayError(c *gin.Context, err error, data interface{}) {
	ge, ok := inference.IsGatewayError(err)
	if !ok {
		s.log.Errorf(c.Request.Context(), "unexpected error: %v", err)
		ginx.ErrorWithData(c, http.StatusInternalServerError, "internal error", data)
		return
	}
	status := http.StatusBadGateway
	if ge.Kind == inference.Unreachable || errors.Is(err, inference.ErrUnreachable) {
		status = http.StatusServiceUnavailable
	}
	ginx.ErrorWithData(c, status, ge.Message, data)
}

func rawText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func fieldMessage(err error) string {
	switch {
	case errors.Is(err, form.ErrUnknownField):
		return "unknown field"
	case errors.Is(err, form.ErrInvalidNumber):
		return "must be a number"
	default:
		return err.Error()
	}
}
