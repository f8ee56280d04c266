// Command migrate bulk-imports an existing directory of captured media
// into the scenes table, so previously collected footage is queryable
// through the scene API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"scenewatch/internal/models"
	"scenewatch/internal/repository/sqlite"
)

var mediaExtensions = map[string]string{
	".jpg":  "image_import",
	".jpeg": "image_import",
	".png":  "image_import",
	".mp4":  "video_import",
	".avi":  "video_import",
	".mpeg": "video_import",
}

func main() {
	mediaDir := flag.String("media", "uploads", "Directory containing media files")
	dbPath := flag.String("db", filepath.Join("data", "scenes.db"), "Database path")
	flag.Parse()

	fmt.Printf("Importing media from %s into %s\n", *mediaDir, *dbPath)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	sceneRepo := sqlite.NewSceneRepository(db)

	files, err := os.ReadDir(*mediaDir)
	if err != nil {
		log.Fatalf("Failed to read media directory: %v", err)
	}

	imported, skipped := 0, 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		cameraID, ok := mediaExtensions[strings.ToLower(filepath.Ext(file.Name()))]
		if !ok {
			skipped++
			continue
		}

		info, err := file.Info()
		if err != nil {
			log.Printf("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		_, err = sceneRepo.Insert(&models.Scene{
			Timestamp: info.ModTime(),
			CameraID:  cameraID,
			MediaPath: filepath.Join(*mediaDir, file.Name()),
		})
		if err != nil {
			log.Printf("Failed to import %s: %v", file.Name(), err)
			skipped++
			continue
		}
		imported++
	}

	fmt.Printf("Imported %d scenes (%d files skipped)\n", imported, skipped)
}
