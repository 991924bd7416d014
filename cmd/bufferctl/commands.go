package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"text/tabwriter"

	"github.com/milan604/buffer-go/pkg/buffer"
	"github.com/milan604/buffer-go/pkg/tokenstore/pgstore"
	"github.com/milan604/buffer-go/pkg/version"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var skipSetup = map[string]string{"skipSetup": "true"}

func newLoginURLCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "login-url",
		Short: "Print the Buffer consent page URL for this application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.client(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), client.Session().LoginURL())
			return nil
		},
	}
}

func newExchangeCmd(c *cli) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "exchange --code CODE",
		Short: "Exchange an authorization code for an access token and save it",
		Long: `Exchange the single-use code Buffer appended to the callback URL for an
access token. The token is saved to the configured token store so later
commands can use it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.client(cmd.Context())
			if err != nil {
				return err
			}
			client.Session().SetAuthorizationCode(code)
			if err := client.ExchangeCode(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "access token saved to %s store\n", c.settings.TokenStore)
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "authorization code from the OAuth callback")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newCallCmd(c *cli) *cobra.Command {
	var selector string
	cmd := &cobra.Command{
		Use:   "call PATH [KEY=VALUE...]",
		Short: "Call a Buffer endpoint and print the JSON response",
		Long: `Call a Buffer endpoint. PATH is an API path such as /profiles or
/updates/4eb854340acb04e870000010. KEY=VALUE pairs become call parameters;
repeat a key to send several values.

Examples:
  bufferctl call /user
  bufferctl call /profiles/123/updates/pending count=5
  bufferctl call /updates/create profile_ids[]=123 text="Hello" now=true
  bufferctl call /profiles --select '#.service'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[1:])
			if err != nil {
				return err
			}
			client, err := c.client(cmd.Context())
			if err != nil {
				return err
			}
			if err := c.requireToken(client); err != nil {
				return err
			}

			resp, err := client.Call(cmd.Context(), args[0], params)
			if err != nil {
				if ae, ok := buffer.AsAPIError(err); ok {
					return fmt.Errorf("%s (%s)", ae.Message, ae.Key())
				}
				return err
			}
			return printResponse(cmd, resp.Raw, selector)
		},
	}
	cmd.Flags().StringVarP(&selector, "select", "s", "", "gjson path selecting part of the response")
	return cmd
}

func newEndpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "endpoints",
		Short:       "List the Buffer endpoints bufferctl can call",
		Args:        cobra.NoArgs,
		Annotations: skipSetup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tPATTERN\tDESCRIPTION")
			for _, ep := range buffer.DefaultRegistry().Endpoints() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", ep.Method, ep.Pattern, ep.Description)
			}
			return w.Flush()
		},
	}
}

func newMigrateCmd(c *cli) *cobra.Command {
	var dir string
	run := func(up bool) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			if c.db == nil {
				return errors.New("migrate needs token_store=postgres")
			}
			switch {
			case up && dir != "":
				return c.db.RunMigrationsUp(dir)
			case up:
				return pgstore.Migrate(c.db)
			case dir != "":
				return c.db.RunMigrationsDown(dir)
			default:
				return pgstore.Rollback(c.db)
			}
		}
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres token table",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "apply migrations from this directory instead of the built-in ones")
	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Create or upgrade the token table", Args: cobra.NoArgs, RunE: run(true)},
		&cobra.Command{Use: "down", Short: "Drop the token table", Args: cobra.NoArgs, RunE: run(false)},
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Args:        cobra.NoArgs,
		Annotations: skipSetup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Info()
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit %s, %s)\n", info["name"], info["version"], info["commit"], info["go"])
			return nil
		},
	}
}

// parseParams turns KEY=VALUE arguments into call parameters. Repeated keys
// accumulate values in order.
func parseParams(args []string) (url.Values, error) {
	vals := url.Values{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("parameter %q is not KEY=VALUE", arg)
		}
		vals.Add(key, value)
	}
	return vals, nil
}

// printResponse writes the response indented, or the part selected by a gjson path.
func printResponse(cmd *cobra.Command, raw json.RawMessage, selector string) error {
	out := cmd.OutOrStdout()
	if selector != "" {
		res := gjson.GetBytes(raw, selector)
		if !res.Exists() {
			return fmt.Errorf("nothing matches %q", selector)
		}
		if res.Type == gjson.String {
			_, err := fmt.Fprintln(out, res.String())
			return err
		}
		raw = json.RawMessage(res.Raw)
	}
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := out.Write(buf.Bytes())
	return err
}
