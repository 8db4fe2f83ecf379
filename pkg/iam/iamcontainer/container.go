package iamcontainer

import (
	"context"
	"time"

	"github.com/Abraxas-365/keygate/pkg/config"
	"github.com/Abraxas-365/keygate/pkg/iam/account/accountapi"
	"github.com/Abraxas-365/keygate/pkg/iam/account/accountinfra"
	"github.com/Abraxas-365/keygate/pkg/iam/account/accountsrv"
	"github.com/Abraxas-365/keygate/pkg/iam/auth"
	"github.com/Abraxas-365/keygate/pkg/iam/auth/authapi"
	"github.com/Abraxas-365/keygate/pkg/iam/auth/authinfra"
	"github.com/Abraxas-365/keygate/pkg/iam/authcode/authcodeinfra"
	"github.com/Abraxas-365/keygate/pkg/iam/authcode/authcodesrv"
	"github.com/Abraxas-365/keygate/pkg/iam/authz"
	"github.com/Abraxas-365/keygate/pkg/iam/bootstrap"
	"github.com/Abraxas-365/keygate/pkg/iam/client/clientinfra"
	"github.com/Abraxas-365/keygate/pkg/iam/client/clientsrv"
	"github.com/Abraxas-365/keygate/pkg/iam/credential"
	"github.com/Abraxas-365/keygate/pkg/iam/invite/inviteapi"
	"github.com/Abraxas-365/keygate/pkg/iam/invite/inviteinfra"
	"github.com/Abraxas-365/keygate/pkg/iam/invite/invitesrv"
	"github.com/Abraxas-365/keygate/pkg/iam/session/sessioninfra"
	"github.com/Abraxas-365/keygate/pkg/iam/session/sessionsrv"
	"github.com/Abraxas-365/keygate/pkg/iam/signup/signupsrv"
	"github.com/Abraxas-365/keygate/pkg/iam/token"
	"github.com/Abraxas-365/keygate/pkg/logx"
	"github.com/Abraxas-365/keygate/pkg/observability"
	"github.com/Abraxas-365/keygate/pkg/store"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

const (
	roleCacheSize = 64
	roleCacheTTL  = 10 * time.Minute
)

// ---------------------------------------------------------------------------
// Deps: explicit external dependencies this bounded context requires.
// ---------------------------------------------------------------------------

type Deps struct {
	DB      *sqlx.DB
	Redis   redis.UniversalClient
	Cfg     *config.Config
	Metrics *observability.Metrics

	// Audit is chosen by cmd/ (logx or AMQP).
	Audit auth.AuditService
}

// ---------------------------------------------------------------------------
// Container: the public surface of the IAM module.
// ---------------------------------------------------------------------------

type Container struct {
	// Services
	SessionManager *sessionsrv.Manager
	SignUpService  *signupsrv.Service
	AuthCodes      *authcodesrv.Service
	InviteService  *invitesrv.InviteService
	ProfileService *accountsrv.ProfileService
	Engine         *authz.Engine

	// Startup
	Seeder       *bootstrap.Seeder
	Bootstrapper *bootstrap.Bootstrapper

	// Handlers
	AuthHandlers    *authapi.AuthHandlers
	ProfileHandlers *accountapi.ProfileHandlers
	InviteHandlers  *inviteapi.InviteHandlers

	// Middleware
	AuthMiddleware *auth.TokenMiddleware

	// Background services
	CleanupService *authinfra.CleanupService

	cfg *config.Config
}

// ---------------------------------------------------------------------------
// New: constructs the entire IAM dependency graph.
// Order matters: infra → repos → services → handlers → middleware.
// ---------------------------------------------------------------------------

func New(deps Deps) *Container {
	logx.Info("🔧 Initializing IAM container...")

	c := &Container{cfg: deps.Cfg}
	authCfg := deps.Cfg.Auth

	// ── Repositories ─────────────────────────────────────────────────────

	accountRepo := accountinfra.NewPostgresAccountRepository(deps.DB)
	profileRepo := accountinfra.NewPostgresProfileRepository(deps.DB)
	recoveryRepo := accountinfra.NewPostgresRecoveryRepository(deps.DB)
	roleRepo := accountinfra.NewCachedRoleRepository(
		accountinfra.NewPostgresRoleRepository(deps.DB),
		roleCacheSize,
		roleCacheTTL,
	)
	assignmentRepo := accountinfra.NewPostgresRoleAssignmentRepository(deps.DB)
	inviteRepo := inviteinfra.NewPostgresInviteRepository(deps.DB)
	clientRepo := clientinfra.NewPostgresClientRepository(deps.DB)
	sessionRepo := sessioninfra.NewPostgresSessionRepository(deps.DB)
	codeRepo := authcodeinfra.NewPostgresAuthCodeRepository(deps.DB)

	// ── Infrastructure services ──────────────────────────────────────────

	tx := store.NewSQLTransactor(deps.DB)
	hasher := credential.NewHasher(authCfg.HashIterations)
	tokens := token.NewGenerator(token.WithMaxAttempts(authCfg.TokenMaxAttempts))

	var throttle auth.Throttle = auth.NopThrottle{}
	if deps.Redis != nil {
		throttle = authinfra.NewRedisThrottle(deps.Redis, authCfg.SignInMaxAttempts, authCfg.SignInWindow)
		logx.Info("  ✅ Using Redis sign-in throttle")
	} else {
		logx.Warn("  ⚠️  Sign-in throttle disabled (no Redis)")
	}

	audit := deps.Audit
	if audit == nil {
		audit = authinfra.NewLogxAuditService()
	}

	// ── Domain services ──────────────────────────────────────────────────

	c.Engine = authz.NewEngine(assignmentRepo, roleRepo)

	c.SessionManager = sessionsrv.NewManager(
		sessionRepo,
		accountRepo,
		codeRepo,
		clientsrv.NewValidator(clientRepo, hasher),
		hasher,
		tokens,
		tx,
		sessionsrv.Lifetimes{
			Access:   authCfg.AccessTTL(),
			Refresh:  authCfg.RefreshTTL(),
			AuthCode: authCfg.AuthCodeTTL(),
		},
	)

	c.SignUpService = signupsrv.NewService(signupsrv.Repositories{
		Accounts:    accountRepo,
		Profiles:    profileRepo,
		Recovery:    recoveryRepo,
		Roles:       roleRepo,
		Assignments: assignmentRepo,
		Invites:     inviteRepo,
	}, hasher, tokens, tx)

	c.AuthCodes = authcodesrv.NewService(codeRepo, tokens, authCfg.AuthCodeTTL())
	c.InviteService = invitesrv.NewInviteService(inviteRepo, c.Engine, tokens)
	c.ProfileService = accountsrv.NewProfileService(profileRepo, c.Engine)

	// ── Startup ──────────────────────────────────────────────────────────

	c.Seeder = bootstrap.NewSeeder(roleRepo, clientRepo, clientsrv.NewService(clientRepo, hasher, tokens), tokens)
	c.Bootstrapper = bootstrap.NewBootstrapper(bootstrap.Repositories{
		Accounts:    accountRepo,
		Profiles:    profileRepo,
		Recovery:    recoveryRepo,
		Roles:       roleRepo,
		Assignments: assignmentRepo,
	}, c.InviteService, c.SignUpService, hasher, tokens, tx)

	// ── API handlers ─────────────────────────────────────────────────────

	c.AuthHandlers = authapi.NewAuthHandlers(c.SessionManager, c.SignUpService, c.AuthCodes, audit, throttle, deps.Metrics)
	c.ProfileHandlers = accountapi.NewProfileHandlers(c.ProfileService)
	c.InviteHandlers = inviteapi.NewInviteHandlers(c.InviteService)

	// ── Middleware ────────────────────────────────────────────────────────

	c.AuthMiddleware = auth.NewAuthMiddleware(c.SessionManager, deps.Metrics)

	// ── Background services ──────────────────────────────────────────────

	c.CleanupService = authinfra.NewCleanupService(sessionRepo, codeRepo, authinfra.CleanupConfig{
		RefreshTTL:    authCfg.RefreshTTL(),
		AuthCodeTTL:   authCfg.AuthCodeTTL(),
		SessionEvery:  deps.Cfg.Reaper.SessionEvery(),
		AuthCodeEvery: deps.Cfg.Reaper.AuthCodeEvery(),
	}, deps.Metrics)

	logx.Info("✅ IAM container initialized")
	return c
}

// Bootstrap seeds the roles and the first-party client, then reconciles the
// administrator account with the configuration.
func (c *Container) Bootstrap(ctx context.Context) (bootstrap.Report, error) {
	if err := c.Seeder.SeedRoles(ctx); err != nil {
		return bootstrap.Report{}, err
	}
	if err := c.Seeder.SeedClient(ctx, c.cfg.Client); err != nil {
		return bootstrap.Report{}, err
	}
	return c.Bootstrapper.EnsureAdmin(ctx, c.cfg.Admin)
}

// RegisterRoutes mounts every IAM route on app.
func (c *Container) RegisterRoutes(app fiber.Router) {
	authMiddleware := c.AuthMiddleware.Authenticate()

	c.AuthHandlers.RegisterRoutes(app, authMiddleware)
	c.ProfileHandlers.RegisterRoutes(app, authMiddleware)
	c.InviteHandlers.RegisterRoutes(app, authMiddleware)
}

// StartBackgroundServices starts IAM-specific background workers.
func (c *Container) StartBackgroundServices(ctx context.Context) {
	go c.CleanupService.Start(ctx)
	logx.Info("  ✅ IAM cleanup service started")
}
