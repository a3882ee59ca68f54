package navigator

// Selectors of the Easy Apply modal. They follow the site's markup and break
// when it changes.
const (
	FormSelector = `div[role="dialog"] form`

	formControls = `//div[@role="dialog"]//form//*[self::input or self::select or self::textarea]`

	nextButton   = `//button[contains(@aria-label, "Continue to next step") or contains(@aria-label, "Next")]`
	reviewButton = `//button[contains(@aria-label, "Review your application") or contains(@aria-label, "Review")]`
	submitButton = `//button[contains(@aria-label, "Submit application") or contains(@aria-label, "Submit")]`

	// The follow checkbox is hidden behind its label, which takes the click.
	followLabel    = `//label[@for='follow-company-checkbox']`
	followCheckbox = `#follow-company-checkbox`

	dismissButton = `//button[@aria-label='Dismiss']`

	selectedResume = `//div[contains(@class, 'jobs-document-upload-redesign-card__container--selected')]`
)
