package main

// Exit codes
const (
	ExitSuccess = 0 // Success
	ExitError   = 1 // Any fatal failure (missing token, paper or page not found, write failure)
)
