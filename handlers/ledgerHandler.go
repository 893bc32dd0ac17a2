package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/textile_ledger/models"
	"github.com/mmdatafocus/textile_ledger/models/reports"
	"github.com/mmdatafocus/textile_ledger/utils"
)

func ledgerRange(c *gin.Context) (models.LedgerRange, bool) {
	from, err := utils.ParseOptionalDate(c.Query("from"))
	if err != nil {
		badRequest(c, err.Error())
		return models.LedgerRange{}, false
	}
	to, err := utils.ParseOptionalDate(c.Query("to"))
	if err != nil {
		badRequest(c, err.Error())
		return models.LedgerRange{}, false
	}
	return models.LedgerRange{From: from, To: to}, true
}

func (h *handler) statement(c *gin.Context, funcName string) (*models.LedgerStatement, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	rng, ok := ledgerRange(c)
	if !ok {
		return nil, false
	}
	statement, err := h.Ledger.ComputeLedgerRange(c.Request.Context(), id, rng)
	if err != nil {
		h.writeError(c, funcName, err)
		return nil, false
	}
	return statement, true
}

func (h *handler) accountLedger(c *gin.Context) {
	statement, ok := h.statement(c, "accountLedger")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, statement)
}

func (h *handler) accountLedgerExcel(c *gin.Context) {
	statement, ok := h.statement(c, "accountLedgerExcel")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteLedgerStatement(&buf, statement); err != nil {
		h.writeError(c, "accountLedgerExcel", err)
		return
	}
	filename := fmt.Sprintf("ledger-%s.xlsx", statement.Account.Code)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, reports.ExcelContentType, buf.Bytes())
}

func (h *handler) trialBalance(c *gin.Context) {
	rows, err := h.Ledger.TrialBalance(c.Request.Context())
	if err != nil {
		h.writeError(c, "trialBalance", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handler) trialBalanceExcel(c *gin.Context) {
	rows, err := h.Ledger.TrialBalance(c.Request.Context())
	if err != nil {
		h.writeError(c, "trialBalanceExcel", err)
		return
	}
	var buf bytes.Buffer
	if err := reports.WriteTrialBalance(&buf, rows); err != nil {
		h.writeError(c, "trialBalanceExcel", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="trial-balance.xlsx"`)
	c.Data(http.StatusOK, reports.ExcelContentType, buf.Bytes())
}
