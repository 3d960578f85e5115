package generator

import (
	"strings"
)

// Prompt 表示发送给 LLM 的消息集合。
type Prompt struct {
	System  string
	User    string
	History []Message
}

// Message 是会话历史中的一条消息。
type Message struct {
	Role    string
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StopPhrase ends the reflection loop when the model includes it in a reply.
const StopPhrase = "I am done"

// NotebookSystemMessage frames every call: who writes the notebook and how entries are structured.
const NotebookSystemMessage = `You are a ambitious AI researcher trying to create a lab notebook 
summarizing your experiments. Your supervisor will use this notebook to understand your experimental 
work, track progress, assess results, give feedback, and potentially guide future research directions. 
The notebook must be clear, experiments should be explicit, and enable the supervisor to understand everything 
without overloading him with too much information.

Your lab notebook should follow a structured format that enables quick comprehension and easy navigation:

## **General Guidelines**:
- Use clear, concise language that balances technical precision with readability
- Maintain consistent formatting and organization throughout
- Highlight key insights, breakthroughs, and decision points

## **Structure for Each Experiment Entry**:

- **Experiment Title**:
  - Clear, descriptive title that captures the experiment's purpose

- **Motivation & Hypothesis**:
  - Briefly explain why this experiment was conducted
  - State clear hypotheses or research questions being tested
  - Connect to broader research goals and previous experiments
  
- **Experimental Setup**:
  - Describe the methodology concisely but completely
  - Include key parameters, datasets, models, and configurations
  - Note any changes from previous experiments
  - Specify evaluation metrics and success criteria
  
- **Results**:
  - Present findings objectively with appropriate visualizations
  - Include quantitative results (tables, metrics) and qualitative observations
  - Report both positive and negative results honestly
  - Highlight unexpected findings or anomalies
  
- **Analysis & Interpretation**:
  - Interpret results in context of the original hypothesis
  - Compare with baseline methods or previous experiments
  - Identify potential causes for unexpected outcomes
  - Assess statistical significance and practical importance

- **Key Insights & Lessons Learned**:
  - Summarize the main takeaways from the experiment
  - Note methodological insights or technical discoveries
  - Document what worked well and what didn't
  - Identify potential improvements or alternative approaches

- **Next Steps**:
  - Outline immediate follow-up experiments or investigations
  - Suggest modifications based on current results
  - Note questions that emerged from this work
  
## **Best Practices**:
- Use clear headings and consistent formatting for easy scanning
- Include relevant plots, tables, and figures with proper captions
- Cross-reference related experiments and build narrative connections
- Balance detail with brevity - include essential information without overwhelming
- Use bullet points and numbered lists for clarity
- Maintain a running glossary of key terms and abbreviations
- Regular backup and version control of notebook entries

Remember: Your supervisor should be able to quickly understand your progress, assess the quality of your work, and provide meaningful guidance based on your documentation. The notebook should tell a coherent story of your research journey while serving as a reliable reference for future work.
`

const fence = "```"

const notebookPromptTemplate = `Your primary goal is to create or update a lab notebook entry. This notebook is a critical 
tool for your supervisor to understand your experimental work, track progress, assess results, give feedback, and 
guide future research directions.

It is essential that the notebook entries are clear, concise, well-structured, and accurately reflect the experimental data and your analysis.

Please meticulously follow the structure and guidelines for each experiment entry.

The current task is to document experiments in the context of this idea:
~~~markdown
{idea_text}
~~~

We have the following experiment summaries (JSON):
~~~json
{summaries}
~~~

We also have a script used to produce the final plots (use this to see how the plots are generated and what names are used in the legend):
~~~python
{aggregator_code}
~~~
Please also consider which plots should naturally be grouped together as subfigures.

Available plots for the writeup (use these filenames):
~~~
{plot_list}
~~~

We also have VLM-based figure descriptions:
~~~
{plot_descriptions}
~~~

Your current Lab Notebook content (if this is an update to an existing notebook, this will be empty):
~~~markdown
{current_notebook}
~~~

Return the entire lab notebook content in Markdown format, enclosed in triple backticks with ~markdown~ syntax highlighting, as shown below:

~~~markdown
<UPDATED MARKDOWN LAB NOTEBOOK CONTENT>
~~~
`

const reflectionPromptText = `
Now let's reflect and identify any issues (including but not limited to):
1) Is the writing clear?
2) Have we included all relevant details from the summaries without hallucinating?

Please provide a revised complete notebook or repeat the same if no changes are needed.
Return the entire file in full, with no unfilled placeholders!
Do not hallucinate any details!

If you believe you are done, simply say: "I am done".
`

var notebookPrompt = strings.NewReplacer("~~~", fence, "~markdown~", "`markdown`").Replace(notebookPromptTemplate)

// NotebookContext carries the already-formatted pieces of the notebook prompt.
type NotebookContext struct {
	IdeaText         string
	Summaries        string // combined JSON
	AggregatorCode   string
	Plots            []string
	PlotDescriptions string
	CurrentNotebook  string
}

// BuildNotebookPrompt fills the notebook template. Substitution is single pass so
// placeholder-looking text inside the inputs is left alone.
func BuildNotebookPrompt(nc NotebookContext) Prompt {
	user := strings.NewReplacer(
		"{idea_text}", nc.IdeaText,
		"{summaries}", nc.Summaries,
		"{aggregator_code}", nc.AggregatorCode,
		"{plot_list}", strings.Join(nc.Plots, ", "),
		"{plot_descriptions}", nc.PlotDescriptions,
		"{current_notebook}", nc.CurrentNotebook,
	).Replace(notebookPrompt)
	return Prompt{
		System: NotebookSystemMessage,
		User:   user,
	}
}

// BuildReflectionPrompt asks the model to critique and resend the notebook, continuing history.
func BuildReflectionPrompt(history []Message) Prompt {
	return Prompt{
		System:  NotebookSystemMessage,
		User:    reflectionPromptText,
		History: history,
	}
}
