package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/learning-assistant/internal/assistant"
	"github.com/capitalize-ai/learning-assistant/internal/backend"
	"github.com/capitalize-ai/learning-assistant/internal/config"
	"github.com/capitalize-ai/learning-assistant/internal/legacy"
	"github.com/capitalize-ai/learning-assistant/pkg/logger"
)

func newChatCmd() *cobra.Command {
	var (
		profilePath string
		userID      string
		backendURL  string
		token       string
		skills      []string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Starts a line-oriented chat. Lines are sent to the assistant; lines starting
with ':' are commands (:help lists them).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := loadProfile(profilePath, cmd.Flags().Changed("profile"))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("user") {
				profile.UserID = userID
			}
			if cmd.Flags().Changed("backend-url") {
				profile.BackendURL = backendURL
			}
			if cmd.Flags().Changed("token") {
				profile.Token = token
			}
			if cmd.Flags().Changed("skills") {
				profile.Skills = skills
			}
			if err := profile.Validate(); err != nil {
				return err
			}

			log, err := logger.NewStderr(profile.LogLevel)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer log.Sync()

			api, err := backend.NewClient(backend.Config{
				BaseURL: profile.BackendURL,
				Timeout: profile.Timeout,
				Token:   profile.Token,
			})
			if err != nil {
				return err
			}

			surface := assistant.New(assistant.Config{
				UserID:            profile.UserID,
				ContextWindow:     profile.ContextWindow,
				SystemPrompt:      profile.SystemPrompt,
				Skills:            profile.Skills,
				CourseGenDisabled: profile.CourseGenDisabled,
				GenerationTimeout: profile.GenerationTimeout,
			}, api, legacy.NewExecutor(api, api, log.Named("legacy")), nil, log)

			return newREPL(surface, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&profilePath, "profile", "p", "learnchat.yaml", "path to the YAML profile")
	cmd.Flags().StringVar(&userID, "user", "", "user id (overrides the profile)")
	cmd.Flags().StringVar(&backendURL, "backend-url", "", "learning platform base URL (overrides the profile)")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (overrides the profile)")
	cmd.Flags().StringSliceVar(&skills, "skills", nil, "comma-separated skills (overrides the profile)")
	return cmd
}

// loadProfile reads the profile file. A missing default profile is not an
// error: flags may carry everything.
func loadProfile(path string, explicit bool) (*config.Profile, error) {
	p, err := config.ReadProfile(path)
	if err == nil {
		return p, nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		p = &config.Profile{}
		p.ApplyDefaults()
		return p, nil
	}
	return nil, err
}
