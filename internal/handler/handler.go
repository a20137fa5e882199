// Package handler exposes wizard sessions, reference data and dashboard
// preferences over HTTP.
package handler

import (
	"errors"
	"strconv"

	"github.com/fasthttp/router"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"insurance-desk/internal/engine"
	"insurance-desk/internal/flows"
	"insurance-desk/internal/metrics"
	"insurance-desk/internal/model"
	"insurance-desk/internal/prefs"
	"insurance-desk/internal/refdata"
)

// Deps are the collaborators shared by every session.
type Deps struct {
	Sink    engine.Sink
	Records engine.RecordSource
	RefData engine.OptionsProvider
	Prefs   prefs.Store
	Metrics *metrics.Metrics
	Log     zerolog.Logger
}

type Handler struct {
	deps     Deps
	sessions *Sessions
	scrape   fasthttp.RequestHandler
	router   *router.Router
}

func New(deps Deps) *Handler {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.Prefs == nil {
		deps.Prefs = prefs.NewMemoryStore()
	}
	h := &Handler{
		deps:     deps,
		sessions: NewSessions(deps.Metrics),
		scrape:   deps.Metrics.Handler(),
	}
	h.router = h.routes()
	return h
}

func (h *Handler) Sessions() *Sessions {
	return h.sessions
}

// Handle serves a request and counts it under its matched route pattern.
func (h *Handler) Handle(ctx *fasthttp.RequestCtx) {
	h.router.Handler(ctx)
	route, _ := ctx.UserValue(router.MatchedRoutePathParam).(string)
	if route == "" {
		route = "unknown"
	}
	h.deps.Metrics.Request(route, ctx.Response.StatusCode())
}

func (h *Handler) routes() *router.Router {
	r := router.New()
	r.SaveMatchedRoutePath = true
	r.NotFound = func(ctx *fasthttp.RequestCtx) {
		writeError(ctx, fasthttp.StatusNotFound, "Not found")
	}
	r.MethodNotAllowed = func(ctx *fasthttp.RequestCtx) {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, "Method not allowed")
	}

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		writeJSON(ctx, fasthttp.StatusOK, map[string]string{"status": "ok"})
	})
	r.GET("/metrics", h.scrape)
	r.GET("/flows", h.listFlows)
	r.GET("/refdata/{key}", h.options)

	r.GET("/prefs", h.listPreferences)
	r.PUT("/prefs/{key}", h.setPreference)
	r.DELETE("/prefs/{key}", h.deletePreference)

	// The router needs one parameter name per segment, so {id} names the
	// flow when a session is opened and the session everywhere else.
	r.POST("/wizards/{id}", h.createSession)
	r.GET("/wizards/{id}", h.session(h.getSession))
	r.DELETE("/wizards/{id}", h.session(h.closeSession))
	r.PUT("/wizards/{id}/variant", h.session(h.setVariant))
	r.PUT("/wizards/{id}/fields/{name}", h.session(h.updateField))
	r.POST("/wizards/{id}/advance", h.session(func(ctx *fasthttp.RequestCtx, id string, e *engine.Engine) {
		h.transition(ctx, id, e, e.Advance())
	}))
	r.POST("/wizards/{id}/retreat", h.session(func(ctx *fasthttp.RequestCtx, id string, e *engine.Engine) {
		h.transition(ctx, id, e, e.Retreat())
	}))
	r.POST("/wizards/{id}/jump", h.session(h.jump))
	r.POST("/wizards/{id}/submit", h.session(h.submit))
	r.GET("/wizards/{id}/steps/{step}/validation", h.session(h.validateStep))
	return r
}

type sessionHandler func(ctx *fasthttp.RequestCtx, id string, e *engine.Engine)

// session resolves the {id} parameter to an open wizard session.
func (h *Handler) session(next sessionHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id := param(ctx, "id")
		e, ok := h.sessions.Get(id)
		if !ok {
			writeError(ctx, fasthttp.StatusNotFound, "Unknown session "+id)
			return
		}
		next(ctx, id, e)
	}
}

func param(ctx *fasthttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

func (h *Handler) getSession(ctx *fasthttp.RequestCtx, id string, e *engine.Engine) {
	h.writeSession(ctx, id, e, nil)
}

func (h *Handler) closeSession(ctx *fasthttp.RequestCtx, id string, _ *engine.Engine) {
	h.sessions.Close(id)
	ctx.SetStatusCode(fasthttp.StatusNoContent)
}

func (h *Handler) createSession(ctx *fasthttp.RequestCtx) {
	name := param(ctx, "id")
	flow, ok := flows.Get(name)
	if !ok {
		writeError(ctx, fasthttp.StatusNotFound, "Unknown flow "+name)
		return
	}

	var req model.CreateSessionRequest
	if len(ctx.PostBody()) > 0 {
		if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	e := engine.New(flow, h.deps.Sink,
		engine.WithLogger(h.deps.Log.With().Str("flow", flow.Name).Logger()),
		engine.WithObserver(h.deps.Metrics),
		engine.WithOptionsProvider(h.deps.RefData),
	)

	if req.CustomerID != "" {
		if h.deps.Records == nil {
			writeError(ctx, fasthttp.StatusNotFound, "Unknown customer "+req.CustomerID)
			return
		}
		customer, err := h.deps.Records.Fetch(ctx, flows.Customer.RecordType, req.CustomerID)
		if err != nil {
			if errors.Is(err, engine.ErrRecordNotFound) {
				writeError(ctx, fasthttp.StatusNotFound, "Unknown customer "+req.CustomerID)
				return
			}
			h.deps.Log.Error().Err(err).Str("customer_id", req.CustomerID).Msg("customer lookup failed")
			writeError(ctx, fasthttp.StatusBadGateway, "Customer lookup failed")
			return
		}
		if err := e.Load(flows.Prefill(flow, customer)); err != nil {
			h.engineError(ctx, err)
			return
		}
	}

	if req.Variant != "" {
		if err := e.SetVariant(engine.ParseVariant(req.Variant)); err != nil {
			h.engineError(ctx, err)
			return
		}
	}

	id := h.sessions.Open(e)
	h.deps.Log.Info().Str("session_id", id).Str("flow", flow.Name).Msg("session opened")
	writeJSON(ctx, fasthttp.StatusCreated, model.SessionResponse{SessionID: id, Draft: e.Snapshot()})
}

func (h *Handler) setVariant(ctx *fasthttp.RequestCtx, id string, e *engine.Engine) {
	var req model.VariantRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	h.transition(ctx, id, e, e.SetVariant(engine.ParseVariant(req.Variant)))
}

func (h *Handler) updateField(ctx *fasthttp.RequestCtx, id string, e *engine.Engine) {
	name := param(ctx, "name")
	var req model.FieldRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := e.UpdateField(name, req.Value); err != nil {
		h.engineError(ctx, err)
		return
	}

	// Values of other variants are kept but not submitted.
	var msgs []model.Message
	if f, ok := e.Flow().Field(name); ok && !f.AppliesTo(e.Variant()) {
		msgs = append(msgs, model.Message{
			Level:   model.LevelWarning,
			Code:    model.CodeInactiveField,
			Field:   name,
			Message: name + " does not apply to " + string(e.Variant()) + " and will not be submitted",
		})
	}
	h.writeSession(ctx, id, e, msgs)
}

func (h *Handler) jump(ctx *fasthttp.RequestCtx, id string, e *engine.Engine) {
	var req model.JumpRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	h.transition(ctx, id, e, e.JumpTo(req.Step))
}

func (h *Handler) submit(ctx *fasthttp.RequestCtx, id string, e *engine.Engine) {
	token, err := e.Submit(ctx)
	if err != nil {
		h.engineError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, model.SubmitResponse{
		SessionID:    id,
		Confirmation: token,
		Draft:        e.Snapshot(),
	})
}

func (h *Handler) validateStep(ctx *fasthttp.RequestCtx, _ string, e *engine.Engine) {
	raw := param(ctx, "step")
	i, err := strconv.Atoi(raw)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid step index "+raw)
		return
	}
	fes, err := e.ValidateStep(i)
	if err != nil {
		h.engineError(ctx, err)
		return
	}

	resp := model.ValidationResponse{Step: i, OK: len(fes) == 0, Messages: []model.Message{}}
	if len(fes) > 0 {
		step := e.Flow().Steps[i]
		resp.Messages = engine.Messages(&engine.StepValidationError{StepID: step.ID, StepIndex: i, Fields: fes})
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

// transition renders the draft after a mutating call, or the error it failed with.
func (h *Handler) transition(ctx *fasthttp.RequestCtx, id string, e *engine.Engine, err error) {
	if err != nil {
		h.engineError(ctx, err)
		return
	}
	h.writeSession(ctx, id, e, nil)
}

func (h *Handler) writeSession(ctx *fasthttp.RequestCtx, id string, e *engine.Engine, msgs []model.Message) {
	if msgs == nil {
		msgs = []model.Message{}
	}
	writeJSON(ctx, fasthttp.StatusOK, model.SessionResponse{SessionID: id, Draft: e.Snapshot(), Messages: msgs})
}

func (h *Handler) listFlows(ctx *fasthttp.RequestCtx) {
	names := flows.Names()
	out := make([]model.FlowSummary, 0, len(names))
	for _, name := range names {
		f, _ := flows.Get(name)
		variants := make([]string, 0, len(f.Variants))
		for _, v := range f.Variants {
			variants = append(variants, string(v))
		}
		steps := make([]model.StepView, 0, len(f.Steps))
		for i, s := range f.Steps {
			steps = append(steps, model.StepView{
				Index:      i,
				ID:         s.ID,
				Title:      s.Title,
				Applicable: s.IsApplicable(f.DefaultVariant),
				Required:   f.RequiredFieldsFor(s.ID, f.DefaultVariant),
			})
		}
		out = append(out, model.FlowSummary{Name: f.Name, RecordType: f.RecordType, Variants: variants, Steps: steps})
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func (h *Handler) options(ctx *fasthttp.RequestCtx) {
	key := param(ctx, "key")
	if h.deps.RefData == nil {
		writeError(ctx, fasthttp.StatusNotFound, "Unknown reference data key "+key)
		return
	}
	opts, err := h.deps.RefData.Options(ctx, key)
	if err != nil {
		if errors.Is(err, refdata.ErrUnknownKey) {
			writeError(ctx, fasthttp.StatusNotFound, "Unknown reference data key "+key)
			return
		}
		h.deps.Log.Error().Err(err).Str("key", key).Msg("reference data lookup failed")
		writeError(ctx, fasthttp.StatusBadGateway, "Reference data unavailable")
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, model.OptionsResponse{Key: key, Options: opts})
}

func (h *Handler) listPreferences(ctx *fasthttp.RequestCtx) {
	writeJSON(ctx, fasthttp.StatusOK, h.deps.Prefs.All())
}

func (h *Handler) deletePreference(ctx *fasthttp.RequestCtx) {
	if err := h.deps.Prefs.Delete(param(ctx, "key")); err != nil {
		h.prefsError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, h.deps.Prefs.All())
}

func (h *Handler) setPreference(ctx *fasthttp.RequestCtx) {
	key := param(ctx, "key")
	var req model.PreferenceRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.deps.Prefs.Set(key, req.Value); err != nil {
		h.prefsError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, h.deps.Prefs.All())
}

func (h *Handler) prefsError(ctx *fasthttp.RequestCtx, err error) {
	if errors.Is(err, prefs.ErrInvalidKey) {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	h.deps.Log.Error().Err(err).Msg("saving preferences failed")
	writeError(ctx, fasthttp.StatusInternalServerError, "Saving preferences failed")
}

func (h *Handler) engineError(ctx *fasthttp.RequestCtx, err error) {
	status := statusFor(err)
	if status >= fasthttp.StatusInternalServerError && status != fasthttp.StatusBadGateway {
		h.deps.Log.Error().Err(err).Msg("request failed")
	}
	writeJSON(ctx, status, model.ErrorResponse{
		Status:   status,
		Message:  err.Error(),
		Messages: engine.Messages(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidVariant),
		errors.Is(err, engine.ErrUnknownField),
		errors.Is(err, engine.ErrStepOutOfRange):
		return fasthttp.StatusBadRequest
	case errors.Is(err, engine.ErrStepNotReachable), errors.Is(err, engine.ErrSubmitInProgress):
		return fasthttp.StatusConflict
	case errors.Is(err, engine.ErrStepValidation), errors.Is(err, engine.ErrIncompleteWizard):
		return fasthttp.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrSinkFailure):
		return fasthttp.StatusBadGateway
	}
	return fasthttp.StatusInternalServerError
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "Encoding response failed")
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}

func writeError(ctx *fasthttp.RequestCtx, status int, message string) {
	body, _ := json.Marshal(model.ErrorResponse{Status: status, Message: message})
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	ctx.SetBody(body)
}
