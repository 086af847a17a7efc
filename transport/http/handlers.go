package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/questor/core"
	"github.com/layer-3/questor/service"
)

type userResponse struct {
	WalletAddress   string `json:"walletAddress"`
	Username        string `json:"username"`
	TotalXP         int64  `json:"totalXP"`
	CompletedQuests []int  `json:"completedQuests"`
}

func newUserResponse(a *core.Account) userResponse {
	return userResponse{
		WalletAddress:   a.WalletAddress,
		Username:        a.Username,
		TotalXP:         a.TotalXP,
		CompletedQuests: a.CompletedQuests,
	}
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
	logger      *slog.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, logger *slog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
	}
}

// Login handles the wallet login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"walletAddress" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
		Message       string `json:"message" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Missing required fields")
		return
	}

	token, account, err := h.authService.Login(c.Request.Context(), req.WalletAddress, req.Signature, req.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  newUserResponse(account),
	})
}

// ProgressHandlers contains HTTP handlers for quest progress
type ProgressHandlers struct {
	progressService *service.ProgressService
	logger          *slog.Logger
}

// NewProgressHandlers creates new progress handlers
func NewProgressHandlers(progressService *service.ProgressService, logger *slog.Logger) *ProgressHandlers {
	return &ProgressHandlers{
		progressService: progressService,
		logger:          logger,
	}
}

// Progress returns the XP and completed quests of the caller
func (h *ProgressHandlers) Progress(c *gin.Context) {
	account, err := h.progressService.GetProgress(c.Request.Context(), userAddress(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalXP":         account.TotalXP,
		"completedQuests": account.CompletedQuests,
	})
}

// questID accepts a JSON number or a numeric string
type questID int

func (q *questID) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*q = questID(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("questId must be a number: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("questId must be a number: %w", err)
	}
	*q = questID(n)
	return nil
}

// Complete credits a quest to the caller
func (h *ProgressHandlers) Complete(c *gin.Context) {
	var req struct {
		QuestID     *questID `json:"questId" binding:"required"`
		TxReference string   `json:"txReference"`
		Verified    *bool    `json:"verified"`

		// older clients
		TxHash             string `json:"txHash"`
		TransactionHash    string `json:"transactionHash"`
		BlockchainVerified *bool  `json:"blockchainVerified"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	evidence := core.Evidence{TxReference: req.TxReference}
	if evidence.TxReference == "" {
		evidence.TxReference = req.TxHash
	}
	if evidence.TxReference == "" {
		evidence.TxReference = req.TransactionHash
	}
	switch {
	case req.Verified != nil:
		evidence.Verified = *req.Verified
	case req.BlockchainVerified != nil:
		evidence.Verified = *req.BlockchainVerified
	}

	account, quest, err := h.progressService.CompleteQuest(c.Request.Context(), userAddress(c), int(*req.QuestID), evidence)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"newXP":           account.TotalXP,
		"questReward":     quest.XPReward,
		"completedQuests": account.CompletedQuests,
	})
}

type completionResponse struct {
	QuestID     int       `json:"questId"`
	XPReward    int64     `json:"xpReward"`
	TxReference string    `json:"txReference"`
	Verified    bool      `json:"verified"`
	CompletedAt time.Time `json:"completedAt"`
}

// History lists the completions of the caller in completion order
func (h *ProgressHandlers) History(c *gin.Context) {
	completions, err := h.progressService.ListHistory(c.Request.Context(), userAddress(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make([]completionResponse, 0, len(completions))
	for _, cp := range completions {
		out = append(out, completionResponse{
			QuestID:     cp.QuestID,
			XPReward:    cp.XPReward,
			TxReference: cp.Evidence.TxReference,
			Verified:    cp.Evidence.Verified,
			CompletedAt: cp.CompletedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// Quests lists the quest catalog
func (h *ProgressHandlers) Quests(c *gin.Context) {
	c.JSON(http.StatusOK, h.progressService.Quests())
}

// Quest returns a single catalog entry
func (h *ProgressHandlers) Quest(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, core.ErrQuestNotFound)
		return
	}

	quest, err := h.progressService.Quest(id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, quest)
}

// UserHandlers contains HTTP handlers for profiles and the leaderboard
type UserHandlers struct {
	userService *service.UserService
	logger      *slog.Logger
}

// NewUserHandlers creates new user handlers
func NewUserHandlers(userService *service.UserService, logger *slog.Logger) *UserHandlers {
	return &UserHandlers{
		userService: userService,
		logger:      logger,
	}
}

// Profile returns the profile of the caller
func (h *UserHandlers) Profile(c *gin.Context) {
	account, err := h.userService.GetProfile(c.Request.Context(), userAddress(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(account))
}

// UpdateProfile changes the display name of the caller. A body without a
// username leaves the profile as is.
func (h *UserHandlers) UpdateProfile(c *gin.Context) {
	var req struct {
		Username *string `json:"username"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	account, err := h.userService.UpdateProfile(c.Request.Context(), userAddress(c), req.Username)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(account))
}

type leaderboardEntry struct {
	Rank          int    `json:"rank"`
	WalletAddress string `json:"walletAddress"`
	Username      string `json:"username"`
	TotalXP       int64  `json:"totalXP"`
}

// Leaderboard returns the public top accounts
func (h *UserHandlers) Leaderboard(c *gin.Context) {
	entries := h.userService.Leaderboard(c.Request.Context())

	out := make([]leaderboardEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, leaderboardEntry(e))
	}
	c.JSON(http.StatusOK, out)
}
