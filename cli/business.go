package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"review-monitor/config"
	"review-monitor/models"
)

var (
	addName       string
	addURL        string
	addAddress    string
	importReplace bool
)

var businessCmd = &cobra.Command{
	Use:   "business",
	Short: "Manages the monitored businesses.",
}

var businessListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists the monitored businesses.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.store.ListBusinesses(cmd.Context())
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"ID", "Name", "Target URL", "Address"})
		for _, b := range list {
			addr := ""
			if b.Address != nil {
				addr = *b.Address
			}
			t.AppendRow(table.Row{b.ID, b.Name, b.TargetURL, addr})
		}
		t.AppendFooter(table.Row{"", fmt.Sprintf("%d businesses", len(list)), "", ""})
		t.Render()
		return nil
	},
}

var businessAddCmd = &cobra.Command{
	Use:   "add --name <name> [--url <target url>] [--address <address>]",
	Short: "Adds a business.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		b := models.BusinessConfig{Name: addName, TargetURL: addURL}
		if addAddress != "" {
			b.Address = &addAddress
		}
		added, err := a.store.AddBusiness(cmd.Context(), b)
		if err != nil {
			return err
		}
		a.logger.Info("Added business %d: %s", added.ID, added.Name)
		return nil
	},
}

var businessRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Removes a business.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid id %q", args[0])
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.DeleteBusiness(cmd.Context(), id); err != nil {
			return fmt.Errorf("remove business %d: %w", id, err)
		}
		a.logger.Info("Removed business %d", id)
		return nil
	},
}

var businessImportCmd = &cobra.Command{
	Use:   "import <seed.yaml> [--replace]",
	Short: "Adds every business listed in a YAML seed file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := config.LoadSeed(args[0])
		if err != nil {
			return err
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if importReplace {
			dir, err := a.store.ReplaceBusinesses(cmd.Context(), seed.Directory)
			if err != nil {
				return err
			}
			a.logger.Info("Replaced the business list with %d businesses from %s", len(dir.Businesses), args[0])
			return nil
		}

		n, err := importBusinesses(cmd.Context(), a, seed.Businesses)
		if err != nil {
			return err
		}
		a.logger.Info("Imported %d businesses from %s", n, args[0])
		return nil
	},
}

func importBusinesses(ctx context.Context, a *app, list []models.BusinessConfig) (int, error) {
	for i, b := range list {
		b.ID = 0
		if _, err := a.store.AddBusiness(ctx, b); err != nil {
			return i, fmt.Errorf("import %s: %w", b.Name, err)
		}
	}
	return len(list), nil
}

// seedIfEmpty stores seed, settings included, only into a store without
// businesses.
func seedIfEmpty(ctx context.Context, a *app, seed *config.Seed) error {
	existing, err := a.store.ListBusinesses(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		a.logger.Debug("[app] Store already has %d businesses, seed ignored", len(existing))
		return nil
	}
	dir, err := a.store.ReplaceBusinesses(ctx, seed.Directory)
	if err != nil {
		return fmt.Errorf("seed businesses: %w", err)
	}
	a.logger.Info("[app] Seeded %d businesses", len(dir.Businesses))
	return nil
}

func init() {
	businessAddCmd.Flags().StringVar(&addName, "name", "", "Business name.")
	businessAddCmd.Flags().StringVar(&addURL, "url", "", "Google Maps place URL (or file:// path to a saved page).")
	businessAddCmd.Flags().StringVar(&addAddress, "address", "", "Street address.")
	_ = businessAddCmd.MarkFlagRequired("name")
	businessImportCmd.Flags().BoolVar(&importReplace, "replace", false, "Replace the business list and settings instead of appending.")

	businessCmd.AddCommand(businessListCmd, businessAddCmd, businessRemoveCmd, businessImportCmd)
	rootCmd.AddCommand(businessCmd)
}
