package ai

import (
	"fmt"
	"strings"

	"careerboost/internal/types"
)

// DefaultSystemPrompt is used when no prompt is configured or loaded from file
const DefaultSystemPrompt = `You are an expert resume writer and ATS (Applicant Tracking System) specialist with a strict commitment to honesty.

- NEVER invent employers, dates, degrees, certifications, metrics or skills
- Every statement in the optimized resume must be traceable to the source resume
- Improve wording, structure, ordering and keyword coverage only
- Score conservatively: an average resume scores between 50 and 70`

// DefaultUserPrompt takes three arguments in order: the output language,
// the targeting context and the resume text.
const DefaultUserPrompt = `Optimize the resume below for Applicant Tracking Systems.

**Tasks:**

1. **Optimized Resume**: Rewrite the resume as clean semantic HTML written in %s.
   Wrap every part in <section data-section="NAME"> where NAME is one of
   header, summary, experience, education, skills, projects, certifications,
   languages, awards, volunteering or interests. Start each section except the
   header with an <h2> title. Use <ul><li> for bullet points. Do not add
   <html>, <head>, <body>, <style> or <script> elements.

2. **ATS Score**: Score the optimized resume from 0 to 100 as it stands,
   before any of the suggestions or missing keywords below are applied.

3. **Suggestions**: List 3 to 8 further improvements the candidate could make.
   For each give a short id, the section type it concerns, the text of the
   suggestion, a one sentence impact and the ATS points (1-10) it would add.

4. **Keywords**: List 5 to 15 ATS keywords relevant to the candidate's field
   with the points (1-5) each would add when present in the resume.

%s
**Resume:**
-----
%s
-----`

// resolvePrompt selects the prompt string by priority:
// 1. A prompt loaded from a file.
// 2. A prompt defined directly in the configuration.
// 3. The built-in default.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}

// targetingContext renders the optional role and job description block
func targetingContext(input types.OptimizeResumeInput) string {
	var b strings.Builder
	if role := strings.TrimSpace(input.TargetRole); role != "" {
		fmt.Fprintf(&b, "**Target Role:** %s\n\n", role)
	}
	if jd := strings.TrimSpace(input.JobDescription); jd != "" {
		fmt.Fprintf(&b, "**Job Description:**\n-----\n%s\n-----\n\n", jd)
	}
	if b.Len() == 0 {
		return "No specific job is targeted; optimize for the candidate's most recent field.\n"
	}
	return b.String()
}

// languageName maps ISO codes to the names the model understands best
func languageName(code string) string {
	switch strings.ToLower(code) {
	case "", "en":
		return "English"
	case "fr":
		return "French"
	case "es":
		return "Spanish"
	case "de":
		return "German"
	case "pt":
		return "Portuguese"
	case "it":
		return "Italian"
	case "nl":
		return "Dutch"
	default:
		return code
	}
}
