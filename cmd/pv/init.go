package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/Dicklesworthstone/parts_viewer/pkg/config"
	"github.com/Dicklesworthstone/parts_viewer/pkg/loader"
	"github.com/Dicklesworthstone/parts_viewer/pkg/view"
)

const jsonlSource = "jsonl"

var (
	initYes   bool
	initForce bool
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Write a config file",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// The config being written may not exist or parse yet.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		c := config.Default()
		if !initYes {
			if err := runInitForm(&c); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					return nil
				}
				return err
			}
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := config.Save(path, c); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "write the defaults without prompting")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config")
}

// initAnswers holds the form's values before they are folded into a Config.
type initAnswers struct {
	driver  string
	target  string
	groupBy []string
	sort    string
	mode    string
	locale  string
}

func answersFrom(c config.Config) initAnswers {
	a := initAnswers{
		driver:  c.Source.Driver,
		target:  c.Source.DSN,
		groupBy: c.View.GroupBy,
		sort:    c.View.Sort,
		mode:    c.Filter.Mode,
		locale:  c.Filter.Locale,
	}
	if c.Source.File != "" {
		a.driver, a.target = jsonlSource, c.Source.File
	}
	return a
}

func (a initAnswers) apply(c *config.Config) {
	if a.driver == jsonlSource {
		c.Source.File = a.target
	} else {
		c.Source.Driver = a.driver
		c.Source.DSN = a.target
		c.Source.File = ""
	}
	c.View.GroupBy = a.groupBy
	c.View.Sort = a.sort
	c.Filter.Mode = a.mode
	c.Filter.Locale = a.locale
}

func runInitForm(c *config.Config) error {
	a := answersFrom(*c)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where do parts come from?").
				Options(
					huh.NewOption("SQLite (cgo)", loader.DriverSQLite3),
					huh.NewOption("SQLite (pure Go)", loader.DriverSQLite),
					huh.NewOption("PostgreSQL", loader.DriverPostgres),
					huh.NewOption("JSONL export", jsonlSource),
				).
				Value(&a.driver),
			huh.NewInput().
				Title("Database DSN or file path").
				Value(&a.target).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Group by (in order)").
				Options(huh.NewOptions("model", "classification", "unit", "rotable")...).
				Value(&a.groupBy),
			huh.NewSelect[string]().
				Title("Sort parts by").
				Options(huh.NewOptions(view.SortKeys...)...).
				Value(&a.sort),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Filter mode").
				Options(huh.NewOptions(view.FilterSubstring.String(), view.FilterFuzzy.String(), view.FilterExpr.String())...).
				Value(&a.mode),
			huh.NewInput().
				Title("Filter locale (BCP 47, e.g. tr or und)").
				Value(&a.locale).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}
					_, err := language.Parse(s)
					return err
				}),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	a.apply(c)
	return nil
}
