package main

import (
	"fmt"
	"os"

	"github.com/echolabs/twinsight-backend/internal/app"
	"github.com/echolabs/twinsight-backend/internal/utils"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	application.Start()

	port := utils.GetEnv("PORT", "8080", application.Log)
	application.Log.Info("Server listening", "port", port)
	if err := application.Run(":" + port); err != nil {
		application.Log.Error("Server failed", "error", err)
	}
}
