package ports

import "github.com/kirillkom/aps-model-browser/internal/core/domain"

// ListView is one list region of the page.
type ListView interface {
	ShowLoading()
	ShowEmpty(message string)
	ShowError(message string)
	Replace(entries []domain.ListEntry)
	Clear()
	SetActive(id string)
}

// UploadForm is the upload panel.
type UploadForm interface {
	SetTarget(enabled bool, folderLabel string)
	SetSubmitEnabled(enabled bool)
	ClearFile()
	ShowState(state domain.UploadState)
}

// Notifier surfaces user-visible notices.
type Notifier interface {
	Notify(notice domain.Notice)
}

// ProfileView shows the greeting or the profile failure notice.
type ProfileView interface {
	ShowGreeting(profile domain.Profile)
	ShowProfileFailure(message string)
}

// ViewerCanvas is the display region the GUI viewer is bound to.
type ViewerCanvas interface {
	ShowViewerState(state domain.ViewerState)
	Mount(theme domain.ViewerTheme)
	ShowModel(model domain.LoadedModel)
}
