package tests

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const modulePath = "github.com/abracadabra-money/cauldron-whitelist-go"

// GetProjectRootPath walks up from the working directory until it finds this module's go.mod.
func GetProjectRootPath() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	dir := wd
	for iterations := 0; iterations <= 10; iterations++ {
		if isModuleRoot(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	panic(fmt.Sprintf("could not find project root path from %s", wd))
}

func isModuleRoot(dir string) bool {
	f, err := os.Open(filepath.Join(dir, "go.mod"))
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module ")) == modulePath
		}
	}
	return false
}

// ReadTestData returns the contents of a file under internal/testData.
func ReadTestData(projectRoot string, name string) ([]byte, error) {
	filePath := filepath.Join(projectRoot, "internal", "testData", name)

	file, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return file, nil
}
