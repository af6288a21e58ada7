package insights

import (
	"context"
	"fmt"
	"strings"
	"time"

	"callqa_backend/platform/ai/openrouter"
)

// digestLimit caps how many call digests feed a single prompt.
const digestLimit = 50

// CallDigest is the minimal per-call material the prompts work from.
type CallDigest struct {
	Date            time.Time
	BusinessInsight string
	CoachingInsight string
	HumanRemarks    string
}

// Generator writes the narrative insights via the LLM provider.
type Generator struct {
	llm *openrouter.Client
}

func NewGenerator(llm *openrouter.Client) *Generator {
	return &Generator{llm: llm}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// AgentMonthly summarizes an agent's month from coaching insights and
// reviewer remarks.
func (g *Generator) AgentMonthly(ctx context.Context, agentName string, calls []CallDigest) (string, error) {
	if len(calls) == 0 {
		return "No calls recorded this month.", nil
	}
	if len(calls) > digestLimit {
		calls = calls[:digestLimit]
	}

	var lines []string
	for _, c := range calls {
		lines = append(lines, fmt.Sprintf("- Call on %s: Coaching Insight=%q, Human Remarks=%q",
			c.Date.Format("2006-01-02"), orNA(c.CoachingInsight), orNA(c.HumanRemarks)))
	}

	prompt := fmt.Sprintf(`Analyze the following call logs for agent '%s' for this month.

Call Logs:
%s

Task:
Generate a detailed monthly performance insight (100 words or less).
Focus on:
1. Key strengths demonstrated.
2. Recurring issues or weaknesses.
3. Overall sentiment and customer satisfaction trends.
4. Compliance with protocols.

Return ONLY the insight text. Do NOT include word counts. Do NOT use markdown.`,
		agentName, strings.Join(lines, "\n"))

	return g.llm.Complete(ctx, "You are a QA Supervisor for a Call Center.", prompt, openrouter.Options{})
}

// MergeOverall folds the new monthly insight into the agent's long-term
// profile and produces a change summary.
func (g *Generator) MergeOverall(ctx context.Context, currentOverall, monthly string) (overall, change string, err error) {
	if currentOverall == "" {
		currentOverall = "No previous history available."
	}

	prompt := fmt.Sprintf(`You are updating the long-term profile of a call center agent.

Current Overall Insight (up to last month):
%q

New Monthly Insight (this month's performance):
%q

Task:
1. Create an UPDATED Overall Insight that integrates the new month's findings into the historical context.
   - If the new month confirms old trends, reinforce them.
   - If the new month shows a change, reflect this evolution (e.g. "Previously struggled with X, but recently showed improvement...").
   - Keep it concise (100 words or less). Do NOT include word counts. Do NOT use markdown.

2. Generate a 'Latest Change Summary' (50 words or less) highlighting what changed THIS month compared to the past: distinct improvements or declines. No word counts, no markdown.

Output Format:
Please use the following exact format with separators:

[OVERALL_START]
...updated overall text here...
[OVERALL_END]

[CHANGE_START]
...change summary here...
[CHANGE_END]`, currentOverall, monthly)

	response, err := g.llm.Complete(ctx, "You are a helpful assistant.", prompt, openrouter.Options{})
	if err != nil {
		return "", "", err
	}

	overall, change, ok := parseMergeResponse(response)
	if !ok {
		// model ignored the separators; keep the raw text rather than lose it
		return response, "Could not parse change summary.", nil
	}
	return overall, change, nil
}

func parseMergeResponse(response string) (overall, change string, ok bool) {
	overall, ok1 := between(response, "[OVERALL_START]", "[OVERALL_END]")
	change, ok2 := between(response, "[CHANGE_START]", "[CHANGE_END]")
	return overall, change, ok1 && ok2
}

func between(s, start, end string) (string, bool) {
	i := strings.Index(s, start)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:j]), true
}

// CityDailyOps summarizes today's operational picture for a city.
func (g *Generator) CityDailyOps(ctx context.Context, cityName string, todays []CallDigest) (string, error) {
	if len(todays) == 0 {
		return "No calls recorded today for operational analysis.", nil
	}
	if len(todays) > digestLimit {
		todays = todays[:digestLimit]
	}

	var lines []string
	for _, c := range todays {
		lines = append(lines, "- Call: "+orNA(c.BusinessInsight))
	}

	prompt := fmt.Sprintf(`Analyze the following operational business insights from today's calls in %s.

Data:
%s

Task:
Generate a 'Daily Ops Insight' (100 words or less).
- Identify any immediate operational bottlenecks, surged issues, or patterns today.
- Be specific.
- Do NOT include word counts.
- Do NOT use markdown formatting. Return plain text only.`, cityName, strings.Join(lines, "\n"))

	return g.llm.Complete(ctx, "You are a City Operations Manager.", prompt, openrouter.Options{})
}

// CityMonthly summarizes the last 30 days of business insights for a city.
func (g *Generator) CityMonthly(ctx context.Context, cityName string, month []CallDigest) (string, error) {
	if len(month) == 0 {
		return "No calls recorded in the last 30 days.", nil
	}
	if len(month) > digestLimit {
		month = month[:digestLimit]
	}

	var lines []string
	for _, c := range month {
		lines = append(lines, "- "+orNA(c.BusinessInsight))
	}

	prompt := fmt.Sprintf(`Analyze the business insights for %s from the last 30 days.

Data:
%s

Task:
Generate a 'Latest Month Insight' (100 words or less).
- Summarize key operational trends, recurring business problems, and volume drivers.
- Highlight macro-level issues affecting the city.
- Do NOT include word counts.
- Do NOT use markdown formatting. Return plain text only.`, cityName, strings.Join(lines, "\n"))

	return g.llm.Complete(ctx, "You are a Regional Operations Director.", prompt, openrouter.Options{})
}

// CityOverall merges the monthly insight into the city's long-term profile.
func (g *Generator) CityOverall(ctx context.Context, currentOverall, monthly string) (string, error) {
	if currentOverall == "" {
		currentOverall = "No previous history available."
	}

	prompt := fmt.Sprintf(`You are maintaining the long-term operational profile of a city.

Current Overall Insight:
%q

New Monthly Insight:
%q

Task:
Create an UPDATED 'Overall City Insight' (100 words or less).
- Merge new findings with historical context.
- Reinforce persistent trends or note if long-standing issues are resolving.
- Do NOT include word counts.
- Do NOT use markdown formatting. Return plain text only.`, currentOverall, monthly)

	return g.llm.Complete(ctx, "You are a helpful analyst.", prompt, openrouter.Options{})
}

// CityCoachingFocus distills a city-wide coaching theme from the month's
// individual coaching insights.
func (g *Generator) CityCoachingFocus(ctx context.Context, cityName string, month []CallDigest) (string, error) {
	var extracts []string
	for _, c := range month {
		if c.CoachingInsight != "" {
			extracts = append(extracts, "- "+c.CoachingInsight)
		}
		if len(extracts) == digestLimit {
			break
		}
	}
	if len(extracts) == 0 {
		return "No coaching insights available to analyze.", nil
	}

	prompt := fmt.Sprintf(`Analyze the individual coaching insights for agents in %s over the last month.

Coaching Logs:
%s

Task:
Generate a 'Coaching Focus for City' (100 words or less).
- Identify common skill gaps across agents in this city (e.g. empathy, process knowledge, closing).
- Recommend specific training modules or focus areas for the city team.
- Do NOT include word counts.
- Do NOT use markdown formatting. Return plain text only.`, cityName, strings.Join(extracts, "\n"))

	return g.llm.Complete(ctx, "You are a Training & Quality Lead.", prompt, openrouter.Options{})
}
