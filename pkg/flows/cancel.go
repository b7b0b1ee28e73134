// Package flows holds the built-in wizard graphs.
package flows

import "github.com/aretw0/carepath/pkg/domain"

// Answer fields of the subscription cancel flow.
const (
	FieldCancelReasons      domain.Field = "cancelReasons"
	FieldPauseInstead       domain.Field = "pauseInstead"
	FieldQuantity           domain.Field = "quantity"
	FieldTreatmentWorked    domain.Field = "treatmentWorked"
	FieldTreatmentFeedback  domain.Field = "treatmentFeedback"
	FieldAdditionalFeedback domain.Field = "additionalFeedback"
)

// Step ids of the subscription cancel flow.
const (
	StepCancelReasons      = "cancelReasons"
	StepPauseInstead       = "pauseInstead"
	StepAdjustQuantity     = "adjustQuantity"
	StepTreatmentWorked    = "treatmentWorked"
	StepTreatmentFeedback  = "treatmentFeedback"
	StepAdditionalFeedback = "additionalFeedback"
	StepConfirmCancel      = "confirmCancel"
)

// Transitions used from the main view and to leave the flow early.
const (
	TransitionPauseCancel    = "pauseCancel"
	TransitionAdjustQuantity = "adjustQuantity"
	TransitionPause          = "pause"
	TransitionAdjust         = "adjust"
)

// CancelFlow returns a fresh copy of the subscription cancel / pause / adjust wizard.
func CancelFlow() *domain.Graph {
	return &domain.Graph{
		Name: "subscription-cancel",
		Steps: []domain.StepConfig{
			{
				ID:          StepCancelReasons,
				Type:        domain.StepCheckbox,
				Title:       "Why do you want to cancel?",
				Description: "Select all that apply.",
				Field:       FieldCancelReasons,
				Options: []domain.Option{
					{ID: "reason1", Label: "Too slow"},
					{ID: "reason2", Label: "Side effects"},
					{ID: "reason3", Label: "Not seeing results"},
					{ID: "reason4", Label: "Cost"},
					{ID: "reason5", Label: "Other"},
				},
			},
			{
				ID:    StepPauseInstead,
				Type:  domain.StepRadio,
				Title: "Would you rather pause your subscription?",
				Field: FieldPauseInstead,
				Options: []domain.Option{
					{ID: "pause", Label: "Pause my subscription"},
					{ID: "cancel", Label: "Continue to cancel"},
				},
			},
			{
				ID:          StepAdjustQuantity,
				Type:        domain.StepRadio,
				Title:       "Adjust your quantity",
				Description: "A smaller supply may fit you better.",
				Field:       FieldQuantity,
				Options: []domain.Option{
					{ID: "12", Label: "12 pills"},
					{ID: "no_thanks", Label: "No thanks"},
				},
			},
			{
				ID:    StepTreatmentWorked,
				Type:  domain.StepRadio,
				Title: "Did the treatment work for you?",
				Field: FieldTreatmentWorked,
				Options: []domain.Option{
					{ID: "yes", Label: "Yes"},
					{ID: "no", Label: "No"},
				},
				ConditionalNavigation: &domain.ConditionalNavigation{
					Field: FieldTreatmentWorked,
					Routes: map[string]string{
						"yes": StepTreatmentFeedback,
						"no":  StepAdditionalFeedback,
					},
				},
			},
			{
				ID:    StepTreatmentFeedback,
				Type:  domain.StepText,
				Title: "Tell us what worked",
				Field: FieldTreatmentFeedback,
			},
			{
				ID:    StepAdditionalFeedback,
				Type:  domain.StepText,
				Title: "Anything else we should know?",
				Field: FieldAdditionalFeedback,
			},
			{
				ID:    StepConfirmCancel,
				Type:  domain.StepComponent,
				Title: "Confirm cancellation",
			},
		},
		Navigation: domain.NavigationTable{
			domain.EntryStepID: {
				TransitionPauseCancel:    StepCancelReasons,
				TransitionAdjustQuantity: StepAdjustQuantity,
				domain.DefaultTransition: StepCancelReasons,
			},
			StepCancelReasons: {
				domain.DefaultTransition: StepPauseInstead,
			},
			StepPauseInstead: {
				domain.DefaultTransition: StepAdjustQuantity,
				TransitionPause:          domain.MainViewID,
			},
			StepAdjustQuantity: {
				domain.DefaultTransition: StepTreatmentWorked,
				TransitionAdjust:         domain.MainViewID,
			},
			StepTreatmentWorked: {
				domain.DefaultTransition: StepTreatmentFeedback,
			},
			StepTreatmentFeedback: {
				domain.DefaultTransition: StepConfirmCancel,
			},
			StepAdditionalFeedback: {
				domain.DefaultTransition: StepConfirmCancel,
			},
			StepConfirmCancel: {
				domain.DefaultTransition: domain.MainViewID,
			},
		},
		Progress: map[string]int{
			StepCancelReasons:      15,
			StepPauseInstead:       30,
			StepAdjustQuantity:     45,
			StepTreatmentWorked:    60,
			StepTreatmentFeedback:  70,
			StepAdditionalFeedback: 85,
			StepConfirmCancel:      95,
		},
	}
}
