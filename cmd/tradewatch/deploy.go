// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tradewatch/tradewatch/internal/deploy"
	"github.com/tradewatch/tradewatch/internal/issue"
)

type deployFlags struct {
	engine     string
	contextDir string
	dockerfile string
	name       string
	tag        string
	noCache    bool
}

func newDeployCommand(app *App) *cobra.Command {
	var flags deployFlags

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Build the image and (re)start the service container",
		Long: `Build the tradewatch image and start it as a detached container.

Any existing container with the same name is stopped and removed first. The
container restarts unless stopped and receives the email and trader
settings from the .env file and the environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, app, flags)
		},
	}

	cmd.Flags().StringVar(&flags.engine, "engine", "auto", "container engine: auto, docker or podman")
	cmd.Flags().StringVar(&flags.contextDir, "context", ".", "image build context directory")
	cmd.Flags().StringVarP(&flags.dockerfile, "file", "f", deploy.DefaultDockerfile, "Dockerfile path relative to the build context")
	cmd.Flags().StringVar(&flags.name, "name", deploy.DefaultContainerName, "container name")
	cmd.Flags().StringVar(&flags.tag, "tag", deploy.DefaultImageTag, "image tag")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "build without the image cache")

	return cmd
}

func runDeploy(cmd *cobra.Command, app *App, flags deployFlags) error {
	ctx := cmd.Context()

	cfg, err := app.Config.Load(ctx, app.loadOptions())
	if err != nil {
		return app.renderFailure(err, configIssue(err))
	}

	engine, err := app.Engines(flags.engine)
	if err != nil {
		return app.renderFailure(err, issue.ContainerEngineNotFoundId)
	}

	level := log.InfoLevel
	if app.verbose {
		level = log.DebugLevel
	}
	logger := app.logger("deploy", level)

	var buildOutput io.Writer
	if app.verbose {
		buildOutput = app.stderr
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Deploying tradewatch"))
	engineLabel := engine.Name()
	if version, verr := engine.Version(ctx); verr != nil {
		logger.Debug("Engine version unavailable", "engine", engine.Name(), "err", verr)
	} else if version != "" {
		engineLabel += " " + version
	}
	fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("Engine:"), engineLabel)
	fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("Trusted traders:"), cfg.AllowedTraders)
	fmt.Fprintf(app.stdout, "%s %ds\n", SubtitleStyle.Render("Check interval:"), cfg.CheckInterval)
	fmt.Fprintln(app.stdout)

	result, err := deploy.NewManager(engine, logger).Deploy(ctx, cfg, deploy.Options{
		ContextDir:    flags.contextDir,
		Dockerfile:    flags.dockerfile,
		ContainerName: flags.name,
		ImageTag:      flags.tag,
		NoCache:       flags.noCache,
		BuildOutput:   buildOutput,
	})
	if err != nil {
		return app.renderFailure(err, deployIssue(err))
	}

	if result.Replaced {
		fmt.Fprintln(app.stdout, WarningStyle.Render("Replaced existing container ")+result.Name)
	}
	fmt.Fprintln(app.stdout, SuccessStyle.Render("✓ Container started successfully!"))
	fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("Name:"), result.Name)
	fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("Image:"), result.Image)
	if result.ContainerID != "" {
		fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("ID:"), result.ContainerID)
	}

	fmt.Fprintln(app.stdout)
	fmt.Fprintln(app.stdout, SubtitleStyle.Render("Useful commands:"))
	for _, line := range deploy.FollowUpCommands(result.Engine, result.Name) {
		fmt.Fprintln(app.stdout, "  "+CmdStyle.Render(line))
	}
	return nil
}

func deployIssue(err error) issue.Id {
	switch {
	case errors.Is(err, deploy.ErrBuildFailed) && errors.Is(err, fs.ErrNotExist):
		return issue.DockerfileNotFoundId
	case errors.Is(err, deploy.ErrBuildFailed):
		return issue.ImageBuildFailedId
	case errors.Is(err, deploy.ErrRunFailed), errors.Is(err, deploy.ErrCleanupFailed):
		return issue.ContainerStartFailedId
	default:
		return 0
	}
}
