package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"

	"github.com/thangnstse171771/cakestory-messaging/internal/auth"
	"github.com/thangnstse171771/cakestory-messaging/internal/config"
	"github.com/thangnstse171771/cakestory-messaging/internal/directory"
	"github.com/thangnstse171771/cakestory-messaging/internal/metrics"
	"github.com/thangnstse171771/cakestory-messaging/internal/service"
)

type Server struct {
	convs      *service.ConversationService
	membership *service.MembershipService
	reconciler *service.Reconciler
	dir        *directory.Directory
	log        *zap.SugaredLogger
}

func NewServer(
	cfg *config.Config,
	convs *service.ConversationService,
	membership *service.MembershipService,
	reconciler *service.Reconciler,
	dir *directory.Directory,
	log *zap.SugaredLogger,
) *fiber.App {
	app := fiber.New()
	app.Use(fiberlogger.New())

	s := &Server{convs: convs, membership: membership, reconciler: reconciler, dir: dir, log: log}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	jv := auth.NewValidator(cfg.App.JWTSecret)
	v1 := app.Group("/v1")
	v1.Use(JWTAuthMiddleware(jv))

	v1.Post("/conversations/shop", s.createShopConversation)
	v1.Post("/conversations/direct", s.createDirectConversation)
	v1.Get("/conversations", s.listConversations)
	v1.Post("/conversations/:id/members", s.addMember)
	v1.Delete("/shops/:shop_id/members/:member_id", s.removeMember)
	v1.Get("/conversations/:id/block-state", s.blockState)
	v1.Post("/conversations/:id/seen", s.markSeen)
	v1.Post("/conversations/:id/snapshot", s.recordSnapshot)
	v1.Get("/identity/:account_id", s.resolveIdentity)
	v1.Post("/identity", s.provisionIdentity)

	admin := v1.Group("/admin")
	admin.Post("/reconcile/inbox/:owner", s.reconcileInbox)
	admin.Post("/reconcile/fanout/:id", s.reFanout)

	return app
}
