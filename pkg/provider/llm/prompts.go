package llm

import "fmt"

// WordPrompt builds the system prompt asking for one random common noun in
// the named language. Languages with non-Latin alphabets are asked to include
// a romanization so SMS players can read the word.
func WordPrompt(languageName string) string {
	return fmt.Sprintf(
		"Generate one random, common noun in %s. "+
			"The word should be simple enough for language learners but "+
			"interesting enough for practice. If the language uses a "+
			"non-Latin alphabet, include both the native script and "+
			"romanization in parentheses. For example, in Korean: "+
			"사과 (sagwa). Respond with just the word, nothing else.",
		languageName,
	)
}

// EvaluationPrompt builds the system prompt for grading a learner's
// description of word. The rubric weights are instructions to the model, not
// something enforced numerically: 40%% accuracy, 30%% grammar, 30%%
// vocabulary. The model is told to answer with a bare JSON object so the
// response can be parsed by ParseEvaluation.
func EvaluationPrompt(word, languageName string) string {
	return fmt.Sprintf(
		"You are evaluating a language learner's description of the word "+
			"'%s' in %s. Their description should be in %s. "+
			"Score their description from 0-100 based on: accuracy of the description "+
			"(40%%), grammar and structure (30%%), and vocabulary usage (30%%). "+
			"Provide the score followed by a brief, encouraging feedback message "+
			"in %s with English translation in parentheses. "+
			"Use this json format exactly, with no additional text: \n"+
			"{\n"+
			"\"score\": [0-100],\n"+
			"\"feedback\": \"[Your feedback in both languages]\"\n"+
			"}\n",
		word, languageName, languageName, languageName,
	)
}
