package config

import (
	"os"
	"path/filepath"
)

// defaultPaths builds the initial path table for a project rooted at
// root. Model config paths are only registered when the models config
// directory actually exists, so a bare checkout does not advertise
// configs it cannot load.
func defaultPaths(root string) map[string]string {
	componentsDir := filepath.Join(root, "configs", "components")

	paths := map[string]string{
		"project_root": root,
		"configs_dir":  filepath.Join(root, "configs"),
		"models_dir":   filepath.Join(root, "models"),
		"data_dir":     filepath.Join(root, "data"),
		"output_dir":   filepath.Join(root, "output"),
		"logs_dir":     filepath.Join(root, "logs"),

		"camera_config":    filepath.Join(componentsDir, "camera.yaml"),
		"processor_config": filepath.Join(componentsDir, "processor.yaml"),
		"app_config":       filepath.Join(componentsDir, "app.yaml"),
	}

	modelsConfigDir := filepath.Join(componentsDir, "models")
	if info, err := os.Stat(modelsConfigDir); err == nil && info.IsDir() {
		paths["mediapipe_config"] = filepath.Join(modelsConfigDir, "mediapipe.yaml")
		paths["yolov9_config"] = filepath.Join(modelsConfigDir, "yolov9.yaml")
	}
	return paths
}
