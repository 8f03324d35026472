package handler

import (
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/D191001/libra/internal/model"
)

// BookIssueHandler exposes the lending workflow.
type BookIssueHandler struct {
	lender  Lender
	timeout time.Duration
	logger  *zap.Logger
	today   func() model.Date
}

func NewBookIssueHandler(lender Lender, timeout time.Duration, l *zap.Logger) *BookIssueHandler {
	return &BookIssueHandler{lender: lender, timeout: timeout, logger: l, today: model.Today}
}

type issueReq struct {
	UserID             uint64     `json:"user_id"`
	BookID             uint64     `json:"book_id"`
	IssueDate          model.Date `json:"issue_date"`
	ExpectedReturnDate model.Date `json:"expected_return_date"`
}

func (r *issueReq) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.BookID, validation.Required),
		validation.Field(&r.ExpectedReturnDate, validation.Required),
	)
}

type returnReq struct {
	ReturnDate model.Date `json:"return_date"`
}

func (r *returnReq) Validate() error { return nil }

// Issue lends a copy.  issue_date defaults to today and user_id to the
// caller.
func (h *BookIssueHandler) Issue(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return fail(c, h.logger, err)
	}
	var req issueReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.logger, err)
	}
	// Default the issue date to today when not provided
	if req.IssueDate.IsZero() {
		req.IssueDate = h.today()
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	issue, err := h.lender.IssueBook(ctx, caller, model.IssueRequest{
		UserID:             req.UserID,
		BookID:             req.BookID,
		IssueDate:          req.IssueDate,
		ExpectedReturnDate: req.ExpectedReturnDate,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, issue)
}

// Return closes an issue.  return_date defaults to today.
func (h *BookIssueHandler) Return(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return fail(c, h.logger, err)
	}
	// Parse issue ID from path
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.logger, err)
	}
	var req returnReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.logger, err)
	}
	if req.ReturnDate.IsZero() {
		req.ReturnDate = h.today()
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	issue, err := h.lender.ReturnBook(ctx, caller, id, req.ReturnDate)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, issue)
}

// List returns the caller's open issues, oldest first.  all=true adds the
// closed ones; admins may pass user_id to look at another user.
func (h *BookIssueHandler) List(c echo.Context) error {
	caller, err := callerOf(c)
	if err != nil {
		return fail(c, h.logger, err)
	}
	// Only admins may list another user's issues
	userID := caller.UserID
	if raw := c.QueryParam("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return fail(c, h.logger, invalidQuery("user_id"))
		}
		if id != caller.UserID && !caller.IsAdmin {
			return fail(c, h.logger, model.ErrForbidden)
		}
		userID = id
	}
	all := false
	if raw := c.QueryParam("all"); raw != "" {
		if all, err = strconv.ParseBool(raw); err != nil {
			return fail(c, h.logger, invalidQuery("all"))
		}
	}
	ctx, cancel := requestCtx(c, h.timeout)
	defer cancel()

	var issues []model.BookIssue
	if all {
		issues, err = h.lender.ListIssues(ctx, userID)
	} else {
		issues, err = h.lender.ListActiveIssues(ctx, userID)
	}
	if err != nil {
		return fail(c, h.logger, err)
	}
	if issues == nil {
		issues = []model.BookIssue{}
	}
	return c.JSON(http.StatusOK, issues)
}
