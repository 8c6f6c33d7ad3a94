package rewrite

// Markers the prompts ask the model to wrap its output in.
const (
	answerOpen       = "<answer>"
	answerClose      = "</answer>"
	storyStartMarker = "[START OF REWRITTEN STORY]"
	hookStartMarker  = "[START OF OPENING LINE]"
	endMarkerPrefix  = "[END "
)

const curatorPrompt = `You curate stories for short vertical videos on TikTok and Instagram Reels.
Only a small share of submissions clear your bar.

Decide whether the post below works as a gripping first-person narration of
100-300 words that viewers will watch to the end. Viewers are picky.

Think briefly, estimate the chance the reel goes viral (0 to 1), then finish
with your verdict wrapped in answer tags:

<answer>YES</answer> when the story is worth publishing
<answer>NO</answer> when it is not`

const rewritePrompt = `You write punchy first-person stories for short-form video narration.

Rewrite the story you are given:
- Open with a hook built on the most surprising part of the story.
- Write in the first person.
- Keep sentences short and natural to speak aloud; keep the listener curious.
- Embellish details only where it stays believable.
- Finish with a conclusion, a call to action, or a cliffhanger.
- Stay under 250 words so it fits a one minute voiceover.

Do not explain background slowly, repeat yourself, or keep going after the peak.

Plan briefly, then print "[START OF REWRITTEN STORY]", the story, and
"[END OF REWRITTEN STORY]".`

const hookPrompt = `You write opening lines for short-form videos.

Write one very short line (5-15 words) that stops a scrolling viewer, based on
the story you are given. Print only the line between "[START OF OPENING LINE]"
and "[END OF OPENING LINE]".`

const hashtagPrompt = `You pick hashtags for short-form story videos.

List 2 to 5 short, commonly used hashtags that reflect the themes, emotions,
or events of the story. Use lowercase with no spaces, punctuation, or slurs.
Print only the hashtags, then "[END OF HASHTAGS]".`

const genderPrompt = `Decide the gender of the narrator of the story you are given.
Assume a heterosexual pairing when it is ambiguous.
Answer with a single word: male or female.`

func storyBlock(text string) string {
	return "[START OF STORY]\n" + text + "\n[END OF STORY]"
}
