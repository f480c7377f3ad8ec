package pipeline

import "fmt"

// Stage identifies a numbered step of the upgrade.
type Stage int

const (
	StageNone Stage = iota
	StageValidatePath
	StageReadCurrentVersion
	StageResolveLatestVersion
	StageCompareVersions
	StageConfirm
	StageCreateDownloadDir
	StageComputeURLs
	StageDownload
	StageVerifyChecksum
	StageExtract
	StageValidateExtraction
	StageCreateBackupDir
	StageBackup
	StageDeleteOldResources
	StageCopyNewResources
	StageValidateUpgrade
	StageInstallDependencies
)

// TotalStages is the number of numbered stages.
const TotalStages = int(StageInstallDependencies)

var stageLabels = map[Stage]string{
	StageNone:                 "Not started",
	StageValidatePath:         "Validating the path",
	StageReadCurrentVersion:   "Identifying the current version number",
	StageResolveLatestVersion: "Identifying the latest version number",
	StageCompareVersions:      "Comparing version numbers",
	StageConfirm:              "Awaiting confirmation to upgrade",
	StageCreateDownloadDir:    "Creating the download directory",
	StageComputeURLs:          "Generating the download URLs",
	StageDownload:             "Downloading the release",
	StageVerifyChecksum:       "Verifying the download integrity",
	StageExtract:              "Extracting the download",
	StageValidateExtraction:   "Verifying the extraction",
	StageCreateBackupDir:      "Creating the backup directory",
	StageBackup:               "Creating a backup of the Teddy instance",
	StageDeleteOldResources:   "Deleting resources from the Teddy instance",
	StageCopyNewResources:     "Copying upgraded resources to the Teddy instance",
	StageValidateUpgrade:      "Verifying the upgrade",
	StageInstallDependencies:  "Installing upgraded dependencies",
}

// Label returns the human-readable label.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// String renders the stage as "Stage N of 17 - label".
func (s Stage) String() string {
	if s == StageNone {
		return s.Label()
	}
	return fmt.Sprintf("Stage %d of %d - %s", int(s), TotalStages, s.Label())
}

// MarshalText encodes the stage by its label for reports.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.Label()), nil
}

// UnmarshalText decodes a stage from its label.
func (s *Stage) UnmarshalText(text []byte) error {
	label := string(text)
	for stage, l := range stageLabels {
		if l == label {
			*s = stage
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", label)
}
