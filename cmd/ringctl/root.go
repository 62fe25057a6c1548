package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cl := &client{
		BaseURL:   envOr("RINGAUTH_URL", "http://localhost:8080"),
		Token:     envOr("RINGAUTH_ADMIN_TOKEN", ""),
		OutFormat: envOr("RINGAUTH_OUT", "text"),
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}

	root := &cobra.Command{
		Use:           "ringctl",
		Short:         "Herramienta del hash ring: simulación local y administración remota",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cl.BaseURL, "url", cl.BaseURL, "URL base del servicio (env RINGAUTH_URL)")
	root.PersistentFlags().StringVar(&cl.Token, "admin-token", cl.Token, "Token de admin (env RINGAUTH_ADMIN_TOKEN)")
	root.PersistentFlags().StringVar(&cl.OutFormat, "out", cl.OutFormat, "Formato de salida: json|text")

	root.AddCommand(newLocateCmd())
	root.AddCommand(newSimulateCmd())
	root.AddCommand(newNodesCmd(cl))
	return root
}
