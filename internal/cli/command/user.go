package command

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/graphite-go/internal/core/domain"
	"github.com/yndnr/graphite-go/internal/core/service"
	"github.com/yndnr/graphite-go/internal/storage"
)

type userView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url" table:"wide"`
	CreatedAt int64  `json:"created_at" table:"millis"`
}

func newUserView(u *domain.User) userView {
	return userView{ID: u.ID, Name: u.Name, AvatarURL: u.AvatarURL, CreatedAt: u.CreatedAt}
}

type projectView struct {
	ID        string `json:"id"`
	UserID    int64  `json:"user_id" table:"wide"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at" table:"millis"`
	UpdatedAt int64  `json:"updated_at" table:"millis"`
}

func newProjectView(p *domain.Project) projectView {
	return projectView{
		ID:        p.ID,
		UserID:    p.UserID,
		Name:      p.Name,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// UserCommand returns the user subcommand group.
func UserCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Inspect registered users",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List users",
				Action: userList,
			},
			{
				Name:      "get",
				Usage:     "Show one user",
				ArgsUsage: "USER_ID",
				Action:    userGet,
			},
		},
	}
}

// ProjectCommand returns the project subcommand group.
func ProjectCommand() *cli.Command {
	userFlag := &cli.Int64Flag{
		Name:     "user-id",
		Aliases:  []string{"u"},
		Usage:    "Owner user ID",
		Required: true,
	}

	return &cli.Command{
		Name:  "project",
		Usage: "Inspect projects",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the projects of a user",
				Flags:  []cli.Flag{userFlag},
				Action: projectList,
			},
			{
				Name:      "get",
				Usage:     "Show one project of a user",
				ArgsUsage: "PROJECT_ID",
				Flags:     []cli.Flag{userFlag},
				Action:    projectGet,
			},
		},
	}
}

func userList(c *cli.Context) error {
	return withStore(c, func(env *storeEnv) error {
		views := []userView{}
		err := storage.NewUserRepo(env.kv).List(c.Context, func(u *domain.User) bool {
			views = append(views, newUserView(u))
			return true
		})
		if err != nil {
			return err
		}
		return render(c, views)
	})
}

func userGet(c *cli.Context) error {
	arg := c.Args().First()
	if arg == "" {
		return domain.ErrMissingArgument.WithDetails("user id required")
	}
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return domain.ErrInvalidArgument.WithDetails("user id must be a positive integer")
	}

	return withStore(c, func(env *storeEnv) error {
		users := service.NewUserService(storage.NewUserRepo(env.kv), env.logger)
		user, err := users.Get(c.Context, id)
		if err != nil {
			return err
		}
		return render(c, newUserView(user))
	})
}

func projectList(c *cli.Context) error {
	userID := c.Int64("user-id")

	return withStore(c, func(env *storeEnv) error {
		projects, err := service.NewProjectService(storage.NewProjectRepo(env.kv)).List(c.Context, userID)
		if err != nil {
			return err
		}

		views := make([]projectView, 0, len(projects))
		for _, p := range projects {
			views = append(views, newProjectView(p))
		}
		return render(c, views)
	})
}

func projectGet(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return domain.ErrMissingArgument.WithDetails("project id required")
	}
	userID := c.Int64("user-id")

	return withStore(c, func(env *storeEnv) error {
		project, err := service.NewProjectService(storage.NewProjectRepo(env.kv)).Get(c.Context, userID, id)
		if err != nil {
			return err
		}
		return render(c, newProjectView(project))
	})
}
