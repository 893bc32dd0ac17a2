package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/textile_ledger/models"
)

func (h *handler) createAccount(c *gin.Context) {
	var input models.NewAccount
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	account, err := h.Accounts.CreateAccount(c.Request.Context(), &input)
	if err != nil {
		h.writeError(c, "createAccount", err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *handler) listAccounts(c *gin.Context) {
	accounts, err := h.Accounts.ListAccounts(c.Request.Context())
	if err != nil {
		h.writeError(c, "listAccounts", err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func (h *handler) accountTree(c *gin.Context) {
	roots, err := h.Accounts.GetHierarchy(c.Request.Context())
	if err != nil {
		h.writeError(c, "accountTree", err)
		return
	}
	c.JSON(http.StatusOK, roots)
}

func (h *handler) getAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	account, err := h.Accounts.GetAccount(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "getAccount", err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (h *handler) deleteAccount(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.Accounts.DeleteAccount(c.Request.Context(), id); err != nil {
		h.writeError(c, "deleteAccount", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) setupDefaultChart(c *gin.Context) {
	accounts, err := h.Accounts.SetupDefaultCOA(c.Request.Context())
	if err != nil {
		h.writeError(c, "setupDefaultChart", err)
		return
	}
	c.JSON(http.StatusCreated, accounts)
}
