package transport

import (
	"fmt"
	"strings"

	"github.com/openclip/videobot/internal/domain/model"
	"github.com/openclip/videobot/internal/templates"
)

const welcomeMessage = "👋 Hello!\n\n" +
	"I generate videos from your photos. 🎬\n\n" +
	"Here's how it works:\n" +
	"• Send me 1-4 photos of yourself\n" +
	"• Describe the video you want\n" +
	"• I'll create it!\n\n" +
	"*Commands:*\n" +
	"• /generate - Start a new video generation\n" +
	"• /templates - See prompt ideas\n" +
	"• /status - Check current generation\n" +
	"• /history - See your previous generations\n" +
	"• /help - Show this help message\n\n" +
	"🔒 *Privacy:* Your photos are used only for video generation and are not stored beyond the process."

const helpMessage = "📚 *Help*\n\n" +
	"*Getting Started:*\n" +
	"1. Use /generate to start\n" +
	"2. Send 1-4 photos of yourself\n" +
	"3. Describe your video with a prompt\n" +
	"4. Wait a few minutes for generation\n\n" +
	"*Tips for Best Results:*\n" +
	"• Use clear, well-lit photos\n" +
	"• Include your full body if you want full-body motion\n" +
	"• Be specific in your prompt (location, mood, actions)\n\n" +
	"*Commands:*\n" +
	"• /generate - Start over\n" +
	"• /templates - Browse prompt ideas\n" +
	"• /status - Check progress\n" +
	"• /history - View past generations\n" +
	"• /reset - Cancel current generation"

func askForPhotosMessage(maxPhotos int) string {
	return fmt.Sprintf(
		"📸 *Send me 1-%d photos of yourself*\n\n"+
			"These photos will be used as reference for the video. For best results:\n"+
			"• Use clear, well-lit photos\n"+
			"• Include various angles if possible\n"+
			"• Avoid heavy filters or edits\n\n%s",
		maxPhotos, templates.FormatQuick(),
	)
}

func photoSavedMessage(count, maxPhotos int) string {
	remaining := maxPhotos - count
	if remaining > 0 {
		return fmt.Sprintf(
			"✅ Photo saved! (%d/%d)\n\n"+
				"You can send %d more photo(s), send your prompt now, or use /done to stop adding photos.",
			count, maxPhotos, remaining,
		)
	}
	return "✅ All photos received! 📸\n\n" +
		"Now send me a prompt describing the video you want to create.\n\n" +
		"Examples:\n" +
		"• 'Dancing in a futuristic city at night'\n" +
		"• 'Walking through Paris in the rain'\n" +
		"• 'Presenting at a tech conference'\n\n" +
		"Use /templates to see more ideas!"
}

const generationStartedMessage = "🎬 *Starting video generation...*\n\n" +
	"⏳ This may take a few minutes. I'll send the video here when it's done.\n" +
	"Use /status to check progress."

func statusEmoji(status model.JobStatus) string {
	switch status {
	case model.JobStatusPending:
		return "⏳"
	case model.JobStatusSubmitted, model.JobStatusGenerating:
		return "🎬"
	case model.JobStatusCompleted:
		return "✅"
	case model.JobStatusFailed:
		return "❌"
	case model.JobStatusCancelled:
		return "🔄"
	default:
		return "❓"
	}
}

func statusMessage(job *model.Job) string {
	switch job.Status {
	case model.JobStatusCompleted:
		return fmt.Sprintf(
			"✅ *Last Generation Complete!*\n\n📝 %s\n\nUse /generate to create another video!",
			promptPreview(job.Prompt, 100),
		)
	case model.JobStatusFailed:
		reason := ""
		if job.ErrorDetail != nil && *job.ErrorDetail != "" {
			reason = "\n" + *job.ErrorDetail
		}
		return fmt.Sprintf(
			"❌ *Last Generation Failed*%s\n\nTry /generate again with a different prompt or photos.",
			reason,
		)
	case model.JobStatusCancelled:
		return "🔄 *Last generation was cancelled.*\n\nUse /generate to start fresh!"
	default:
		return fmt.Sprintf(
			"📊 *Generation Status*\n\n%s In progress\n\n📸 Photos: %d\n📝 Prompt: %s\n\n"+
				"⏳ Please wait while your video is being generated...",
			statusEmoji(job.Status), len(job.Photos), promptPreview(job.Prompt, 100),
		)
	}
}

const noJobsMessage = "📊 *Your Status*\n\n" +
	"No active generation. Use /generate to start creating videos!"

const emptyHistoryMessage = "📋 *Generation History*\n\n" +
	"No previous generations. Use /generate to create your first video!"

func historyMessage(jobs []*model.Job) string {
	lines := []string{"📋 *Your Recent Generations*\n"}
	for _, job := range jobs {
		lines = append(lines, fmt.Sprintf(
			"%s *%s* - %s\n   📝 %s\n",
			statusEmoji(job.Status),
			job.ID,
			job.CreatedAt.Format("Jan 02, 15:04"),
			promptPreview(job.Prompt, 30),
		))
	}
	return strings.Join(lines, "\n")
}

const resetMessage = "🔄 *Generation cancelled and cleared.*\n\nUse /generate to start fresh!"

const idleTextHint = "Please start a new generation with /generate first."

const busyTextHint = "🎬 A generation is already running.\n\n" +
	"Use /status to check progress, or /cancel to stop it."

const genericErrorMessage = "⚠️ Something went wrong. Please try again or use /reset."

func promptPreview(prompt string, limit int) string {
	runes := []rune(prompt)
	if len(runes) <= limit {
		return prompt
	}
	return string(runes[:limit]) + "..."
}
