package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"careerboost/internal/common"
	"careerboost/internal/formatters"
	"careerboost/internal/resume"
)

var sectionsCmd = &cobra.Command{
	Use:   "sections [html-file]",
	Short: "List the sections of an HTML resume",
	Long: `Parse an HTML resume into the sections the editor works with. Sections
start at h1-h3 headings or at elements carrying a data-section attribute.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		return common.ResolveOutputFormat(&sectionsConfig, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
	},
	RunE: runSections,
}

var sectionsConfig common.CommandConfig

func init() {
	sectionsCmd.Flags().StringVarP(&sectionsConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	sectionsCmd.Flags().StringVar(&sectionsConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
}

func runSections(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	data, err := common.NewFileProcessor(cfg.App.MaxFileSize, logger).ReadFile(args[0])
	if err != nil {
		return err
	}

	clean, err := resume.Sanitize(string(data))
	if err != nil {
		return fmt.Errorf("failed to sanitize %s: %w", args[0], err)
	}
	sections, err := resume.ParseSections(clean)
	if err != nil {
		return fmt.Errorf("failed to parse sections of %s: %w", args[0], err)
	}

	logger.Debug("Parsed resume sections", "file", args[0], "count", len(sections))
	return common.NewOutputHandler(cmd.OutOrStdout(), logger).
		HandleOutput(formatters.SectionList{Source: args[0], Sections: sections}, sectionsConfig)
}
