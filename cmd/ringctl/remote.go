package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	Token     string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *client) do(method, path string, body []byte) (int, []byte, error) {
	u := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(method, u, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, nil
}

func (c *client) print(w io.Writer, status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintln(w, string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Fprintln(w, strings.TrimSpace(string(body)))
	} else {
		fmt.Fprintf(w, "status=%d\n", status)
	}
}

// call hace el request y falla si el status no es 2xx.
func (c *client) call(cmd *cobra.Command, op, method, path string, body []byte) error {
	status, b, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return fmt.Errorf("%s fallo: status=%d body=%s", op, status, strings.TrimSpace(string(b)))
	}
	c.print(cmd.OutOrStdout(), status, b)
	return nil
}

// nodes: administración remota vía /v1/ring.
func newNodesCmd(cl *client) *cobra.Command {
	nodesCmd := &cobra.Command{Use: "nodes", Short: "Nodos del ring de un servicio en ejecución"}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lista nodos, estado del breaker y stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(cmd, "list", http.MethodGet, "/v1/ring/nodes", nil)
		},
	}

	var driver, addr, password string
	var db int
	addCmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Agrega un nodo al ring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _ := json.Marshal(map[string]any{
				"name":     args[0],
				"driver":   driver,
				"addr":     addr,
				"password": password,
				"db":       db,
			})
			return cl.call(cmd, "add", http.MethodPost, "/v1/ring/nodes", b)
		},
	}
	addCmd.Flags().StringVar(&driver, "driver", "redis", "Driver del nodo: redis|memory")
	addCmd.Flags().StringVar(&addr, "addr", "", "host:port del nodo redis")
	addCmd.Flags().StringVar(&password, "password", "", "Password de redis")
	addCmd.Flags().IntVar(&db, "db", 0, "DB de redis")

	removeCmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Saca un nodo del ring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(cmd, "remove", http.MethodDelete, "/v1/ring/nodes/"+url.PathEscape(args[0]), nil)
		},
	}

	locateCmd := &cobra.Command{
		Use:   "locate USERNAME",
		Short: "Nodo dueño del token de un usuario según el servicio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call(cmd, "locate", http.MethodGet, "/v1/ring/locate?username="+url.QueryEscape(args[0]), nil)
		},
	}

	nodesCmd.AddCommand(listCmd, addCmd, removeCmd, locateCmd)
	return nodesCmd
}
