package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/thangnstse171771/cakestory-messaging/internal/models"
	"github.com/thangnstse171771/cakestory-messaging/internal/repository"
	"github.com/thangnstse171771/cakestory-messaging/internal/service"
)

func (s *Server) createShopConversation(c *fiber.Ctx) error {
	var body struct {
		ShopID          int64   `json:"shop_id"`
		ShopName        string  `json:"shop_name"`
		ShopAvatar      string  `json:"shop_avatar"`
		StaffAccountIDs []int64 `json:"staff_account_ids"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.ErrBadRequest
	}
	conv, err := s.convs.GetOrCreateShopConversation(c.Context(), service.ShopConversationInput{
		ShopID:            body.ShopID,
		ShopName:          body.ShopName,
		ShopAvatar:        body.ShopAvatar,
		CustomerAccountID: callerAccountID(c),
		StaffAccountIDs:   body.StaffAccountIDs,
	})
	if err != nil {
		if conv != nil {
			// Conversation exists but some inbox writes failed; the
			// client gets the conversation and a hint to reconcile.
			s.log.Warnw("shop conversation created with partial fan-out",
				"conversation", conv.ID, "err", err)
			return c.Status(fiber.StatusAccepted).JSON(conv)
		}
		return s.fail(c, err, "create shop conversation")
	}
	return c.JSON(conv)
}

func (s *Server) createDirectConversation(c *fiber.Ctx) error {
	var body struct {
		AccountID int64 `json:"account_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.ErrBadRequest
	}
	conv, err := s.convs.GetOrCreateDirectConversation(c.Context(), callerAccountID(c), body.AccountID)
	if err != nil {
		if conv != nil {
			s.log.Warnw("direct conversation created with partial fan-out",
				"conversation", conv.ID, "err", err)
			return c.Status(fiber.StatusAccepted).JSON(conv)
		}
		return s.fail(c, err, "create direct conversation")
	}
	return c.JSON(conv)
}

func (s *Server) listConversations(c *fiber.Ctx) error {
	mid, err := s.dir.ResolveMessagingID(c.Context(), callerAccountID(c))
	if err != nil {
		return s.fail(c, err, "resolve caller identity")
	}
	sums, err := s.convs.ListConversationsForAccount(c.Context(), mid)
	if err != nil {
		return s.fail(c, err, "list conversations")
	}
	return c.JSON(sums)
}

func (s *Server) addMember(c *fiber.Ctx) error {
	var body struct {
		AccountID int64       `json:"account_id"`
		Role      models.Role `json:"role"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.ErrBadRequest
	}
	if body.Role == "" {
		body.Role = models.RoleShopMember
	}
	if err := s.membership.AddMember(c.Context(), c.Params("id"), body.AccountID, body.Role); err != nil {
		return s.fail(c, err, "add member")
	}
	return c.JSON(fiber.Map{"status": "added"})
}

func (s *Server) removeMember(c *fiber.Ctx) error {
	shopID, err := strconv.ParseInt(c.Params("shop_id"), 10, 64)
	if err != nil {
		return fiber.ErrBadRequest
	}
	if err := s.membership.RemoveMember(c.Context(), shopID, c.Params("member_id")); err != nil {
		return s.fail(c, err, "remove member")
	}
	return c.JSON(fiber.Map{"status": "removed"})
}

func (s *Server) blockState(c *fiber.Ctx) error {
	other := c.Query("other")
	if other == "" {
		return fiber.ErrBadRequest
	}
	viewer, err := s.dir.ResolveMessagingID(c.Context(), callerAccountID(c))
	if err != nil {
		return s.fail(c, err, "resolve caller identity")
	}
	state, err := s.convs.BlockStateFor(c.Context(), viewer, other)
	if err != nil {
		return s.fail(c, err, "resolve block state")
	}
	return c.JSON(state)
}

func (s *Server) markSeen(c *fiber.Ctx) error {
	mid, err := s.dir.ResolveMessagingID(c.Context(), callerAccountID(c))
	if err != nil {
		return s.fail(c, err, "resolve caller identity")
	}
	if err := s.convs.MarkSeen(c.Context(), mid, c.Params("id")); err != nil {
		return s.fail(c, err, "mark seen")
	}
	return c.JSON(fiber.Map{"status": "seen"})
}

func (s *Server) recordSnapshot(c *fiber.Ctx) error {
	var body struct {
		Text   string    `json:"text"`
		SentAt time.Time `json:"sent_at"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.ErrBadRequest
	}
	if body.SentAt.IsZero() {
		body.SentAt = time.Now().UTC()
	}
	snap := models.MessageSnapshot{Text: body.Text, SentAt: body.SentAt}
	if err := s.convs.RecordMessage(c.Context(), c.Params("id"), snap); err != nil {
		return s.fail(c, err, "record snapshot")
	}
	return c.JSON(fiber.Map{"status": "recorded"})
}

func (s *Server) resolveIdentity(c *fiber.Ctx) error {
	accountID, err := strconv.ParseInt(c.Params("account_id"), 10, 64)
	if err != nil {
		return fiber.ErrBadRequest
	}
	mid, err := s.dir.ResolveMessagingID(c.Context(), accountID)
	if err != nil {
		return s.fail(c, err, "resolve identity")
	}
	return c.JSON(fiber.Map{"account_id": accountID, "messaging_id": mid})
}

// provisionIdentity lazily assigns the caller a messaging identity on
// first contact; repeat calls return the existing immutable identity.
func (s *Server) provisionIdentity(c *fiber.Ctx) error {
	var body struct {
		DisplayName string `json:"display_name"`
		AvatarURL   string `json:"avatar_url"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.ErrBadRequest
	}
	a, err := s.dir.Provision(c.Context(), callerAccountID(c), body.DisplayName, body.AvatarURL)
	if err != nil {
		return s.fail(c, err, "provision identity")
	}
	return c.JSON(a)
}

func (s *Server) reconcileInbox(c *fiber.Ctx) error {
	removed, err := s.reconciler.ReconcileInbox(c.Context(), c.Params("owner"))
	if err != nil {
		return s.fail(c, err, "reconcile inbox")
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (s *Server) reFanout(c *fiber.Ctx) error {
	restored, err := s.reconciler.ReFanout(c.Context(), c.Params("id"))
	if err != nil {
		return s.fail(c, err, "re-fan-out")
	}
	return c.JSON(fiber.Map{"restored": restored})
}

func (s *Server) fail(c *fiber.Ctx, err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	case errors.Is(err, service.ErrSelfConversation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		s.log.Errorw(op+" failed", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
