package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"creatorpulse/internal/core"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewPrefsCmd creates the prefs command group
func NewPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change newsletter preferences",
	}

	cmd.AddCommand(newPrefsShowCmd())
	cmd.AddCommand(newPrefsSetCmd())

	return cmd
}

func newPrefsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved preferences as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrefsShow(cmd.Context())
		},
	}
}

type prefsFlags struct {
	file         string
	writingStyle string
	tone         string
	length       string
	topics       []string
	deliveryTime string
	email        string
}

func newPrefsSetCmd() *cobra.Command {
	var f prefsFlags

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update preferences",
		Long: `Update preferences. Only the flags you pass are changed.

A YAML file in the format printed by 'prefs show' can be loaded with --file;
flags are applied on top of it.

Example:
  creatorpulse prefs set --tone witty --length short
  creatorpulse prefs set --topics ai,crypto --delivery-time 07:30
  creatorpulse prefs show > prefs.yaml && creatorpulse prefs set --file prefs.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrefsSet(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML file with preferences")
	cmd.Flags().StringVar(&f.writingStyle, "style", "", "Writing style description")
	cmd.Flags().StringVar(&f.tone, "tone", "", "Tone, e.g. professional or casual")
	cmd.Flags().StringVar(&f.length, "length", "", "Newsletter length: short, medium or long")
	cmd.Flags().StringSliceVar(&f.topics, "topics", nil, "Comma-separated topics of interest")
	cmd.Flags().StringVar(&f.deliveryTime, "delivery-time", "", "Delivery time as HH:MM, local time")
	cmd.Flags().StringVar(&f.email, "email", "", "Delivery email address")

	return cmd
}

func runPrefsShow(ctx context.Context) error {
	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	prefs, err := a.drafts.Preferences(ctx)
	if err != nil {
		return err
	}

	return printYAML(prefs)
}

func runPrefsSet(cmd *cobra.Command, f prefsFlags) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, noGenerator)
	if err != nil {
		return err
	}
	defer a.Close()

	current, err := a.drafts.Preferences(ctx)
	if err != nil {
		return err
	}
	prefs := *current

	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return fmt.Errorf("failed to read preferences file: %w", err)
		}
		if err := yaml.Unmarshal(data, &prefs); err != nil {
			return fmt.Errorf("failed to parse preferences file: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("style") {
		prefs.WritingStyle = f.writingStyle
	}
	if flags.Changed("tone") {
		prefs.Tone = f.tone
	}
	if flags.Changed("length") {
		prefs.Length = core.NewsletterLength(strings.ToLower(f.length))
	}
	if flags.Changed("topics") {
		prefs.Topics = f.topics
	}
	if flags.Changed("delivery-time") {
		prefs.DeliveryTime = f.deliveryTime
	}
	if flags.Changed("email") {
		prefs.EmailAddress = f.email
	}

	saved, err := a.drafts.SavePreferences(ctx, prefs)
	if err != nil {
		return err
	}

	fmt.Println("✅ Preferences saved")
	return printYAML(saved)
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}
