package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"careerboost/internal/ai"
	"careerboost/internal/common"
	"careerboost/internal/errors"
	"careerboost/internal/formatters"
	"careerboost/internal/resume"
	"careerboost/internal/types"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [resume-file]",
	Short: "Optimize a resume and report its ATS score",
	Long: `Optimize a resume with AI and print the optimized version together with
its ATS score, the suggested improvements and the relevant keywords.

The resume may be a PDF, DOCX, HTML, markdown or plain text file. Use --job
to optimize for a specific job description.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		return common.ResolveOutputFormat(&optimizeConfig.CommandConfig, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
	},
	RunE: runOptimize,
}

var optimizeConfig struct {
	common.CommandConfig
	JobFile    string
	TargetRole string
	Language   string
}

func init() {
	optimizeCmd.Flags().StringVarP(&optimizeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	optimizeCmd.Flags().StringVar(&optimizeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	optimizeCmd.Flags().StringVar(&optimizeConfig.JobFile, "job", "", "Job description file to optimize for")
	optimizeCmd.Flags().StringVar(&optimizeConfig.TargetRole, "role", "", "Target role")
	optimizeCmd.Flags().StringVar(&optimizeConfig.Language, "language", "", "Output language (default from config)")

	_ = optimizeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formatters.GlobalRegistry.GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	aiService, err := newAIService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLogged(logger, "AI service", aiService.Close)

	language := optimizeConfig.Language
	if language == "" {
		language = cfg.Resume.DefaultLanguage
	}

	paths := []string{args[0]}
	if optimizeConfig.JobFile != "" {
		paths = append(paths, optimizeConfig.JobFile)
	}

	command := common.AICommand[types.OptimizeResumeInput, types.OptimizeResumeOutput]{
		Files:  common.NewFileProcessor(cfg.App.MaxFileSize, logger),
		Output: common.NewOutputHandler(cmd.OutOrStdout(), logger),
		Logger: logger,
		CreateInput: func(contents []string) (types.OptimizeResumeInput, error) {
			input := types.OptimizeResumeInput{
				ResumeText: contents[0],
				Language:   language,
				TargetRole: optimizeConfig.TargetRole,
			}
			if len(contents) > 1 {
				input.JobDescription = contents[1]
			}
			if limit := cfg.Resume.MaxResumeChars; limit > 0 && len([]rune(input.ResumeText)) > limit {
				return input, errors.NewValidationError(errors.ErrCodeInvalidRequest,
					fmt.Sprintf("resume text exceeds %d characters", limit), nil)
			}
			logger.Info("Starting resume optimization",
				"resume_chars", len(input.ResumeText),
				"job_chars", len(input.JobDescription),
				"language", input.Language,
				"output_format", optimizeConfig.OutputFormat)
			return input, nil
		},
		Run: func(ctx context.Context, input types.OptimizeResumeInput) (types.OptimizeResumeOutput, *ai.TokenUsage, error) {
			return aiService.Provider.OptimizeResume(ctx, input)
		},
		Report: func(out types.OptimizeResumeOutput) (any, error) {
			return buildReport(args[0], out)
		},
	}

	if err := command.Execute(cmd.Context(), optimizeConfig.CommandConfig, paths...); err != nil {
		return fmt.Errorf("failed to optimize resume: %w", err)
	}
	logger.Info("Resume optimization completed successfully")
	return nil
}

// buildReport sanitizes the optimized HTML and scores it
func buildReport(source string, out types.OptimizeResumeOutput) (formatters.OptimizeReport, error) {
	clean, err := resume.Sanitize(out.OptimizedText)
	if err != nil {
		return formatters.OptimizeReport{}, errors.NewAIError(errors.ErrCodeInvalidFormat, "optimized resume is not valid HTML", err)
	}
	text := resume.PlainText(clean)
	out.OptimizedText = clean
	out.ATSScore = resume.ClampScore(out.ATSScore)
	out.Keywords = resume.DetectKeywordUsage(text, out.Keywords)

	return formatters.OptimizeReport{
		Source:          source,
		Result:          out,
		Score:           resume.Breakdown(out.ATSScore, out.Suggestions, out.Keywords),
		MissingKeywords: resume.MissingKeywords(text, out.Keywords),
	}, nil
}
