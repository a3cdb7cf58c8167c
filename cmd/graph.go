package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/spigell/fit-agent/internal/skillgraph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the skill catalogue the agent uses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		config, err := getConfig()
		if err != nil {
			return err
		}

		graph, err := loadGraph(config.SkillGraphFile)
		if err != nil {
			return err
		}

		return printGraph(cmd.OutOrStdout(), graph)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}

func printGraph(w io.Writer, graph *skillgraph.Graph) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()

	err := enc.Encode(struct {
		Nodes []skillgraph.SkillNode `yaml:"nodes"`
		Edges []skillgraph.SkillEdge `yaml:"edges"`
	}{graph.Nodes(), graph.Edges()})
	if err != nil {
		return fmt.Errorf("encoding skill graph: %w", err)
	}

	return nil
}
