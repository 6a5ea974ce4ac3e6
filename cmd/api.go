package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/Laisky/institute-cms/internal/cms/controller"
	"github.com/Laisky/institute-cms/internal/cms/service"
	"github.com/Laisky/institute-cms/internal/web"
	"github.com/Laisky/institute-cms/library/auth"
	"github.com/Laisky/institute-cms/library/config"
	"github.com/Laisky/institute-cms/library/jwt"
	"github.com/Laisky/institute-cms/library/log"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `serve the public content API and the admin API`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := runAPI(ctx); err != nil {
			log.Logger.Panic("run api", zap.Error(err))
		}
	},
}

func init() {
	rootCMD.AddCommand(apiCMD)
}

// newAuthenticator builds admin auth from settings.secret and settings.admins.
func newAuthenticator() (*auth.Authenticator, error) {
	secret := envOr(gconfig.Shared.GetString("settings.secret"), "CMS_SECRET")
	ttl := time.Duration(gconfig.Shared.GetInt("settings.auth.token_ttl_hours")) * time.Hour

	signer, err := jwt.NewSigner([]byte(secret), ttl)
	if err != nil {
		return nil, errors.Wrap(err, "new jwt signer")
	}

	admins := auth.LoadAdminsFromConfig()
	if len(admins) == 0 {
		log.Logger.Warn("no admins configured, admin API is unreachable")
	}

	return auth.New(signer, admins)
}

func runAPI(ctx context.Context) error {
	settings := service.LoadSettingsFromConfig()

	st, err := openStore(ctx, settings)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Logger.Warn("close store", zap.Error(err))
		}
	}()

	authn, err := newAuthenticator()
	if err != nil {
		return errors.Wrap(err, "init admin auth")
	}

	opt := web.LoadOptionsFromConfig()
	opt.Gatherer = st.registry
	opt.SiteDir = config.ResolvePath(opt.SiteDir)
	if settings.Media.Backend == service.MediaLocal {
		opt.MediaDir = config.ResolvePath(settings.Media.Dir)
		opt.MediaURLPrefix = settings.Media.URLPrefix
	}

	ctrl := controller.New(st.cms, authn, settings.Media.MaxBytes)
	return web.RunServer(ctx, gconfig.Shared.GetString("listen"), web.NewServer(ctrl, opt))
}
