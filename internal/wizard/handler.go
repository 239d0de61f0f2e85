package wizard

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"cvcoach-backend/internal/analyses"
	"cvcoach-backend/internal/coach"
	"cvcoach-backend/internal/documents"
	"cvcoach-backend/internal/extract"
	"cvcoach-backend/internal/reports"
	"cvcoach-backend/internal/sessions"
	"cvcoach-backend/internal/shared/server/middleware"
	"cvcoach-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the wizard service.
type Handler struct {
	Svc      *Service
	Docs     *documents.Service
	validate *validator.Validate
}

func NewHandler(svc *Service, docs *documents.Service) *Handler {
	return &Handler{
		Svc:      svc,
		Docs:     docs,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes attaches workspace routes. modelBacked runs in front of the
// routes that call the language model.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, modelBacked ...gin.HandlerFunc) {
	llm := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, modelBacked...), handler)
	}

	ws := rg.Group("/workspaces")
	ws.POST("", h.create)
	ws.GET("/:id", h.get)
	ws.DELETE("/:id", h.startOver)
	ws.POST("/:id/cv", h.uploadCV)
	ws.PUT("/:id/cv/text", h.editCVText)
	ws.POST("/:id/jd", llm(h.uploadJD)...)
	ws.PUT("/:id/jd/text", h.editJDText)
	ws.GET("/:id/jd/markdown", h.jdMarkdown)
	ws.POST("/:id/analyze", llm(h.analyze)...)
	ws.POST("/:id/reanalyze", llm(h.reanalyze)...)
	ws.POST("/:id/cancel", h.cancel)
	ws.POST("/:id/back", h.back)
	ws.POST("/:id/chat/messages", llm(h.sendChat)...)
	ws.POST("/:id/chat/messages/:index/apply", h.apply)
	ws.POST("/:id/chat/messages/:index/reject", h.reject)
	ws.GET("/:id/export", h.export)
	ws.GET("/:id/exports", h.listExports)
	ws.GET("/:id/exports/:exportId", h.downloadExport)
}

type textRequest struct {
	FileName string `json:"fileName" validate:"omitempty,max=255"`
	Text     string `json:"text" validate:"required"`
}

type analyzeRequest struct {
	Force bool `json:"force"`
}

type chatRequest struct {
	Message string `json:"message" validate:"required,max=8000"`
}

func (h *Handler) create(c *gin.Context) {
	ws, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("workspaceId", ws.ID)
	respond.JSON(c, http.StatusCreated, toWorkspaceResponse(ws))
}

func (h *Handler) get(c *gin.Context) {
	ws, err := h.Svc.Get(middleware.UserIDFromContext(c), h.workspaceID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, toWorkspaceResponse(ws))
}

func (h *Handler) startOver(c *gin.Context) {
	ws, err := h.Svc.StartOver(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c))
	h.transition(c, ws, err, http.StatusOK)
}

func (h *Handler) uploadCV(c *gin.Context) {
	doc, ok := h.readDocument(c)
	if !ok {
		return
	}
	ws, err := h.Svc.UploadCV(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c), doc)
	h.transition(c, ws, err, http.StatusOK)
}

func (h *Handler) uploadJD(c *gin.Context) {
	doc, ok := h.readDocument(c)
	if !ok {
		return
	}
	ws, err := h.Svc.UploadJD(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c), doc)
	h.transition(c, ws, err, http.StatusAccepted)
}

func (h *Handler) editCVText(c *gin.Context) {
	var req textRequest
	if !h.bind(c, &req) {
		return
	}
	ws, err := h.Svc.EditCVText(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c), req.Text)
	h.transition(c, ws, err, http.StatusOK)
}

func (h *Handler) editJDText(c *gin.Context) {
	var req textRequest
	if !h.bind(c, &req) {
		return
	}
	ws, err := h.Svc.EditJDText(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c), req.Text)
	h.transition(c, ws, err, http.StatusOK)
}

func (h *Handler) jdMarkdown(c *gin.Context) {
	ws, err := h.Svc.Get(middleware.UserIDFromContext(c), h.workspaceID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	markdown := analyses.PendingMarkdown
	if ws.StructuredJD != nil {
		markdown = ws.StructuredJD.Markdown()
	}
	respond.OK(c, gin.H{"markdown": markdown, "ready": ws.StructuredJD != nil})
}

func (h *Handler) analyze(c *gin.Context) {
	req := analyzeRequest{}
	if c.Request.ContentLength != 0 && !h.bind(c, &req) {
		return
	}
	owner, id := middleware.UserIDFromContext(c), h.workspaceID(c)
	var (
		ws  Workspace
		err error
	)
	if req.Force {
		ws, err = h.Svc.ForceAnalyze(c.Request.Context(), owner, id)
	} else {
		ws, err = h.Svc.Analyze(c.Request.Context(), owner, id)
	}
	h.transition(c, ws, err, http.StatusAccepted)
}

func (h *Handler) reanalyze(c *gin.Context) {
	ws, err := h.Svc.Reanalyze(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c))
	h.transition(c, ws, err, http.StatusAccepted)
}

func (h *Handler) cancel(c *gin.Context) {
	ws, err := h.Svc.Cancel(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c))
	h.transition(c, ws, err, http.StatusOK)
}

func (h *Handler) back(c *gin.Context) {
	ws, err := h.Svc.Back(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c))
	h.transition(c, ws, err, http.StatusOK)
}

func (h *Handler) sendChat(c *gin.Context) {
	var req chatRequest
	if !h.bind(c, &req) {
		return
	}
	msgs, err := h.Svc.SendChat(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c), req.Message)
	if err != nil && len(msgs) == 0 {
		h.fail(c, err)
		return
	}
	resp := MessagesResponse{Messages: msgs}
	if err != nil {
		// the apology is already part of the conversation
		_, resp.ErrorCode = describe(err)
	}
	respond.OK(c, resp)
}

func (h *Handler) apply(c *gin.Context) {
	index, ok := h.messageIndex(c)
	if !ok {
		return
	}
	msgs, ws, err := h.Svc.ApplySuggestion(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c), index)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, ApplyResponse{
		Messages:     msgs,
		CVText:       ws.CV.RawText,
		Improvements: len(ws.Ledger.Flatten()),
	})
}

func (h *Handler) reject(c *gin.Context) {
	index, ok := h.messageIndex(c)
	if !ok {
		return
	}
	msgs, err := h.Svc.RejectSuggestion(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c), index)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, MessagesResponse{Messages: msgs})
}

func (h *Handler) export(c *gin.Context) {
	body, err := h.Svc.Export(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.Attachment(c, sessions.ExportFileName, sessions.ExportContentType, body)
}

func (h *Handler) listExports(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	exports, err := h.Svc.Exports(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.OK(c, gin.H{"exports": toExportResponses(exports)})
}

func (h *Handler) downloadExport(c *gin.Context) {
	body, _, err := h.Svc.ArchivedExport(c.Request.Context(), middleware.UserIDFromContext(c), h.workspaceID(c), c.Param("exportId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	respond.Attachment(c, sessions.ExportFileName, sessions.ExportContentType, body)
}

// readDocument accepts a multipart "file" field or a JSON {fileName,text} body.
func (h *Handler) readDocument(c *gin.Context) (documents.Document, bool) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Docs.MaxBytes+1<<20)
		fh, err := c.FormFile("file")
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
			return documents.Document{}, false
		}
		if fh.Size > h.Docs.MaxBytes {
			h.fail(c, documents.ErrTooLarge)
			return documents.Document{}, false
		}
		f, err := fh.Open()
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "unreadable file", nil)
			return documents.Document{}, false
		}
		defer f.Close()
		doc, err := h.Docs.FromUpload(c.Request.Context(), fh.Filename, fh.Header.Get("Content-Type"), f)
		if err != nil {
			h.fail(c, err)
			return documents.Document{}, false
		}
		return doc, true
	}

	var req textRequest
	if !h.bind(c, &req) {
		return documents.Document{}, false
	}
	doc, err := h.Docs.FromText(req.FileName, req.Text)
	if err != nil {
		h.fail(c, err)
		return documents.Document{}, false
	}
	return doc, true
}

func (h *Handler) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		details := []string{}
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details = append(details, fe.Field()+" "+fe.Tag())
			}
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", details)
		return false
	}
	return true
}

func (h *Handler) workspaceID(c *gin.Context) string {
	id := c.Param("id")
	c.Set("workspaceId", id)
	return id
}

func (h *Handler) messageIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid message index", nil)
		return 0, false
	}
	return index, true
}

// transition writes the new snapshot and records the step change for the
// request log.
func (h *Handler) transition(c *gin.Context, ws Workspace, err error, status int) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set("stepTransition", string(ws.Step)+"/"+string(ws.Stage))
	respond.JSON(c, status, toWorkspaceResponse(ws))
}

var errorRules = []respond.Rule{
	{Err: ErrNotFound, Status: http.StatusNotFound, Code: "not_found", Message: "workspace not found"},
	{Err: reports.ErrNotFound, Status: http.StatusNotFound, Code: "not_found", Message: "export not found"},
	{Err: ErrInvalidInput, Status: http.StatusBadRequest, Code: "validation_error", Message: "invalid input"},
	{Err: documents.ErrInvalidInput, Status: http.StatusBadRequest, Code: "validation_error", Message: "invalid input"},
	{Err: coach.ErrEmptyMessage, Status: http.StatusBadRequest, Code: "validation_error", Message: "message is empty"},
	{Err: documents.ErrTooLarge, Status: http.StatusRequestEntityTooLarge, Code: "too_large", Message: "document exceeds upload limit"},
	{Err: extract.ErrUnsupportedFormat, Status: http.StatusUnsupportedMediaType, Code: "unsupported_format", Message: "unsupported document format"},
	{Err: extract.ErrCorruptDocument, Status: http.StatusUnprocessableEntity, Code: "corrupt_document", Message: "document could not be read"},
	{Err: ErrRunInProgress, Status: http.StatusConflict, Code: "analysis_running", Message: "analysis already running"},
	{Err: ErrNoRun, Status: http.StatusConflict, Code: "no_analysis_running", Message: "no analysis running"},
	{Err: ErrMissingCV, Status: http.StatusConflict, Code: "cv_missing", Message: "upload a CV first"},
	{Err: ErrMissingJD, Status: http.StatusConflict, Code: "jd_missing", Message: "upload a job description first"},
	{Err: ErrInvalidTransition, Status: http.StatusConflict, Code: "invalid_transition", Message: "cannot go back from this step"},
	{Err: ErrNoChat, Status: http.StatusConflict, Code: "chat_unavailable", Message: "run an analysis first"},
	{Err: coach.ErrBusy, Status: http.StatusConflict, Code: "coach_busy", Message: "the coach is still answering"},
	{Err: coach.ErrNoSuggestion, Status: http.StatusNotFound, Code: "not_found", Message: "message has no suggestion"},
	{Err: coach.ErrSuggestionResolved, Status: http.StatusConflict, Code: "suggestion_resolved", Message: "suggestion already applied or rejected"},
	{Err: coach.ErrOriginalNotFound, Status: http.StatusConflict, Code: "original_not_found", Message: "the suggested text is no longer in the CV"},
	{Err: sessions.ErrNothingToExport, Status: http.StatusConflict, Code: "nothing_to_export", Message: "no improvements have been applied yet"},
	{Err: sessions.ErrNoActiveSession, Status: http.StatusConflict, Code: "no_session", Message: "no active analysis session"},
}

func (h *Handler) fail(c *gin.Context, err error) {
	respond.FromError(c, err, errorRules)
}
