package command

import (
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/graphite-go/internal/core/domain"
	"github.com/yndnr/graphite-go/internal/core/service"
	"github.com/yndnr/graphite-go/internal/storage"
)

// sessionView is how sessions are printed.
type sessionView struct {
	Token     string `json:"token"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url" table:"wide"`
	CreatedAt int64  `json:"created_at" table:"millis"`
}

func newSessionView(s *domain.Session) sessionView {
	return sessionView{
		Token:     s.ID,
		UserID:    s.UserID,
		Name:      s.Name,
		AvatarURL: s.AvatarURL,
		CreatedAt: s.CreatedAt,
	}
}

// listedSessionView omits the token column, which List cannot know.
type listedSessionView struct {
	KeyHash   string `json:"key_hash"`
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url" table:"wide"`
	CreatedAt int64  `json:"created_at" table:"millis"`
}

// SessionCommand returns the session subcommand group.
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sess"},
		Usage:   "Manage sessions",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Log a user in and print the new session token",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     "user-id",
						Aliases:  []string{"u"},
						Usage:    "Upstream user ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Display name",
					},
					&cli.StringFlag{
						Name:  "avatar-url",
						Usage: "Avatar URL",
					},
				},
				Action: sessionCreate,
			},
			{
				Name:      "get",
				Usage:     "Resolve a session token",
				ArgsUsage: "TOKEN",
				Action:    sessionGet,
			},
			{
				Name:  "list",
				Usage: "List stored sessions",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:    "user-id",
						Aliases: []string{"u"},
						Usage:   "Only sessions of this user",
					},
				},
				Action: sessionList,
			},
		},
	}
}

func sessionCreate(c *cli.Context) error {
	identity := domain.Identity{
		UserID:    c.Int64("user-id"),
		Name:      c.String("name"),
		AvatarURL: c.String("avatar-url"),
	}
	if identity.UserID <= 0 {
		return domain.ErrInvalidArgument.WithDetails("user id must be positive")
	}

	return withStore(c, func(env *storeEnv) error {
		sessions, err := env.sessions()
		if err != nil {
			return err
		}
		users := service.NewUserService(storage.NewUserRepo(env.kv), env.logger)
		login := service.NewLoginService(users, sessions)

		result, err := login.CompleteLogin(c.Context, identity)
		if err != nil {
			return err
		}

		session, ok, err := sessions.Get(c.Context, result.Token)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrSessionNotFound
		}
		return render(c, newSessionView(session))
	})
}

func sessionGet(c *cli.Context) error {
	tok := c.Args().First()
	if tok == "" {
		return domain.ErrMissingArgument.WithDetails("session token required")
	}

	return withStore(c, func(env *storeEnv) error {
		sessions, err := env.sessions()
		if err != nil {
			return err
		}

		session, ok, err := sessions.Get(c.Context, tok)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrSessionNotFound
		}
		return render(c, newSessionView(session))
	})
}

func sessionList(c *cli.Context) error {
	userID := c.Int64("user-id")

	return withStore(c, func(env *storeEnv) error {
		sessions, err := env.sessions()
		if err != nil {
			return err
		}

		views := []listedSessionView{}
		err = sessions.List(c.Context, func(rec storage.SessionRecord) bool {
			if userID != 0 && rec.UserID != userID {
				return true
			}
			views = append(views, listedSessionView{
				KeyHash:   rec.KeyHash,
				UserID:    rec.UserID,
				Name:      rec.Name,
				AvatarURL: rec.AvatarURL,
				CreatedAt: rec.CreatedAt,
			})
			return true
		})
		if err != nil {
			return err
		}

		sort.SliceStable(views, func(i, j int) bool {
			return views[i].CreatedAt < views[j].CreatedAt
		})
		return render(c, views)
	})
}
