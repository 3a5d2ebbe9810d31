package dispatch

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/discord-bot-shared/pkg/cmd"
)

const (
	ColorError   = 0xff0000
	ColorWarning = 0xffbf00
	ColorSuccess = 0xb01e66
)

// DefaultHookReason is shown when the global hook vetoes without a reason.
const DefaultHookReason = "The global command hook returned false."

// Format renders a message as an ephemeral embed. Severity selects the label
// and colour only; the structure is the same for every severity.
func Format(sev Severity, message string) *discordgo.InteractionResponseData {
	title, color := "Success", ColorSuccess
	switch sev {
	case SeverityWarning:
		title, color = "Warning", ColorWarning
	case SeverityError:
		title, color = "Error", ColorError
	}
	return &discordgo.InteractionResponseData{
		Flags: discordgo.MessageFlagsEphemeral,
		Embeds: []*discordgo.MessageEmbed{{
			Title:       title,
			Description: message,
			Color:       color,
		}},
	}
}

// describe returns the text shown to the invoker for a dispatch failure.
func describe(err *Error) string {
	switch err.Kind {
	case KindValidation:
		return err.Message
	case KindAuthorizationDenied:
		return "You do not have one of the required roles to run this command."
	case KindAuthorizationError:
		return "Could not check your roles. Try again."
	case KindHookVeto:
		if err.Message == "" {
			return DefaultHookReason
		}
		return err.Message
	case KindHandlerFault:
		if IsUserError(err.Cause) {
			return err.Cause.Error()
		}
		return fmt.Sprintf("There was an error while running this command.\n```%v```", err.Cause)
	case KindIgnored, KindDeliveryFault, KindBulkFailure, KindBulkPartialFailure:
		return err.Error()
	}
	return err.Error()
}

// router delivers reply data on the channel selected by the invocation mode:
// deferred interactions are edited, fresh ones are answered.
type router struct {
	responder Responder
}

func (r router) Deliver(i *discordgo.Interaction, mode cmd.ReplyMode, data *discordgo.InteractionResponseData) error {
	switch mode {
	case cmd.ReplyDeferred:
		edit := &discordgo.WebhookEdit{}
		if data.Content != "" {
			edit.Content = &data.Content
		}
		if data.Embeds != nil {
			edit.Embeds = &data.Embeds
		}
		if data.Components != nil {
			edit.Components = &data.Components
		}
		if data.AllowedMentions != nil {
			edit.AllowedMentions = data.AllowedMentions
		}
		edit.Files = data.Files
		return r.responder.EditResponse(i, edit)
	default:
		return r.responder.Respond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		})
	}
}

// acknowledge sends the deferred ephemeral acknowledgement of an interaction.
func (r router) acknowledge(i *discordgo.Interaction) error {
	return r.responder.Respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}
