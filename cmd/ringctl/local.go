package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/ringauth/internal/ring"
)

func buildRing(nodes []string, replicas int) (*ring.Ring, error) {
	r := ring.New(ring.WithReplicas(replicas))
	for _, n := range nodes {
		if err := r.AddNode(strings.TrimSpace(n)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// locate: qué nodo es dueño de cada key, sin tocar ningún servicio.
func newLocateCmd() *cobra.Command {
	var (
		nodes    []string
		replicas int
	)
	cmd := &cobra.Command{
		Use:   "locate KEY...",
		Short: "Muestra el nodo dueño de cada key (o username) en un ring local",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := buildRing(nodes, replicas)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, k := range args {
				node, err := r.GetNode(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", k, node, ring.Hash(k))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&nodes, "nodes", []string{"A", "B", "C"}, "Nodos del ring")
	cmd.Flags().IntVar(&replicas, "replicas", ring.DefaultReplicas, "Posiciones virtuales por nodo")
	return cmd
}

// remapReport resultado de simular un cambio de topología.
type remapReport struct {
	Keys     int
	Moved    int
	Before   map[string]int
	After    map[string]int
	Fraction float64
}

func simulate(nodes, add, remove []string, replicas, keys int) (*remapReport, error) {
	r, err := buildRing(nodes, replicas)
	if err != nil {
		return nil, err
	}
	owners := make([]string, keys)
	rep := &remapReport{Keys: keys, Before: map[string]int{}, After: map[string]int{}}
	for i := range owners {
		n, err := r.GetNode(fmt.Sprintf("key-%d", i))
		if err != nil {
			return nil, err
		}
		owners[i] = n
		rep.Before[n]++
	}

	for _, n := range add {
		if err := r.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, n := range remove {
		if err := r.RemoveNode(n); err != nil {
			return nil, err
		}
	}

	for i := range owners {
		n, err := r.GetNode(fmt.Sprintf("key-%d", i))
		if err != nil {
			return nil, err
		}
		rep.After[n]++
		if n != owners[i] {
			rep.Moved++
		}
	}
	if keys > 0 {
		rep.Fraction = float64(rep.Moved) / float64(keys)
	}
	return rep, nil
}

// simulate: cuántas keys cambian de dueño al agregar o sacar nodos.
func newSimulateCmd() *cobra.Command {
	var (
		nodes, add, remove []string
		replicas, keys     int
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simula altas/bajas de nodos y reporta cuántas keys se remapean",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(add) == 0 && len(remove) == 0 {
				return fmt.Errorf("--add o --remove es requerido")
			}
			rep, err := simulate(nodes, add, remove, replicas, keys)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "keys=%d moved=%d fraction=%.4f\n", rep.Keys, rep.Moved, rep.Fraction)
			names := make([]string, 0, len(rep.After)+len(rep.Before))
			seen := map[string]bool{}
			for _, m := range []map[string]int{rep.Before, rep.After} {
				for n := range m {
					if !seen[n] {
						seen[n] = true
						names = append(names, n)
					}
				}
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Fprintf(out, "%s\t%d -> %d\n", n, rep.Before[n], rep.After[n])
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&nodes, "nodes", []string{"A", "B", "C"}, "Nodos iniciales")
	cmd.Flags().StringSliceVar(&add, "add", nil, "Nodos a agregar")
	cmd.Flags().StringSliceVar(&remove, "remove", nil, "Nodos a sacar")
	cmd.Flags().IntVar(&replicas, "replicas", ring.DefaultReplicas, "Posiciones virtuales por nodo")
	cmd.Flags().IntVar(&keys, "keys", 1000, "Cantidad de keys sintéticas")
	return cmd
}
