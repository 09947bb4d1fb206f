package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "studymate",
	Short: "StudyMate backend",
	Long: `StudyMate backend: accounts and sessions, the learning-materials exchange,
chat history and the AI chat gateway, plus the background worker that keeps
storage and sessions tidy.`,
	SilenceUsage: true,
}
