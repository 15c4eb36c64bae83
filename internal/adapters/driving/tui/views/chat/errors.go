package chat

import "errors"

// ErrNoChatService is returned when the chat service is not available.
var ErrNoChatService = errors.New("chat service not available")

// ErrNoFeedbackService is returned when ratings cannot be recorded.
var ErrNoFeedbackService = errors.New("feedback not available")
