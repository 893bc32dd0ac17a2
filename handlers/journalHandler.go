package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/textile_ledger/models"
	"github.com/mmdatafocus/textile_ledger/utils"
)

// journalEntryRequest takes the date as text so clients can send a plain YYYY-MM-DD.
type journalEntryRequest struct {
	Date         string                  `json:"date"`
	Type         models.VoucherType      `json:"type"`
	Reference    string                  `json:"reference"`
	Narration    string                  `json:"narration"`
	FiscalYearID *int                    `json:"fiscal_year_id"`
	Number       string                  `json:"number"`
	Lines        []models.NewJournalLine `json:"lines"`
}

func (r journalEntryRequest) toInput() (*models.NewJournalEntry, error) {
	date, err := utils.ParseDate(r.Date)
	if err != nil {
		return nil, models.NewValidationError("date: %s", err.Error())
	}
	return &models.NewJournalEntry{
		Date:         date,
		Type:         r.Type,
		Reference:    r.Reference,
		Narration:    r.Narration,
		FiscalYearID: r.FiscalYearID,
		Number:       r.Number,
		Lines:        r.Lines,
	}, nil
}

func (h *handler) createJournalEntry(c *gin.Context) {
	var req journalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.writeError(c, "createJournalEntry", err)
		return
	}
	entry, err := h.Journal.CreateEntry(c.Request.Context(), input)
	if err != nil {
		h.writeError(c, "createJournalEntry", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *handler) listJournalEntries(c *gin.Context) {
	var filter models.JournalEntryFilter
	if v := c.Query("type"); v != "" {
		t, err := models.ParseVoucherType(v)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		filter.Type = t
	}
	var err error
	if filter.FromDate, err = utils.ParseOptionalDate(c.Query("from")); err != nil {
		badRequest(c, err.Error())
		return
	}
	if filter.ToDate, err = utils.ParseOptionalDate(c.Query("to")); err != nil {
		badRequest(c, err.Error())
		return
	}
	if filter.FiscalYearID, err = utils.ParseOptionalInt(c.Query("fiscal_year_id")); err != nil {
		badRequest(c, err.Error())
		return
	}
	if filter.AccountID, err = utils.ParseOptionalInt(c.Query("account_id")); err != nil {
		badRequest(c, err.Error())
		return
	}

	entries, err := h.Journal.GetEntries(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, "listJournalEntries", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *handler) getJournalEntry(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entry, err := h.Journal.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "getJournalEntry", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *handler) peekVoucherNumber(c *gin.Context) {
	voucherType, err := models.ParseVoucherType(c.Param("type"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	number, err := h.Sequencer.Peek(c.Request.Context(), voucherType)
	if err != nil {
		h.writeError(c, "peekVoucherNumber", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"type": voucherType, "number": number})
}
