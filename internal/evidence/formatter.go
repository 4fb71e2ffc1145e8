package evidence

import (
	"fmt"
	"strings"
)

// Section labels of the formatted context, in the order they are emitted.
const (
	FileTreeSectionLabel      = "[FILE TREE]"
	CommitLogSectionLabel     = "[COMMIT LOG]"
	ManifestFilesSectionLabel = "[CRITICAL CONFIG FILES]"
	SourceSamplesSectionLabel = "[ACTUAL SOURCE CODE SAMPLES]"
	ReadmeSectionLabel        = "[README]"
)

const (
	contextPreambleTemplateConstant    = "REPO CONTEXT: %s"
	defaultBranchLineTemplateConstant  = "DEFAULT BRANCH: %s"
	manifestHeaderTemplateConstant     = "--- %s ---"
	sourceSampleHeaderTemplateConstant = "--- SOURCE SAMPLE: %s ---"
	sourceSampleOmittedLinesTemplate   = "%s (%d more lines)"
	commitRecordTemplateConstant       = "%s %s [%s]%s: %s"
	verifiedCommitSuffixConstant       = " [Verified]"
	sectionSeparatorConstant           = "\n\n"
	formatterLineSeparatorConstant     = "\n"
)

// SectionLabels returns the fixed section labels in emission order.
func SectionLabels() []string {
	return []string{
		FileTreeSectionLabel,
		CommitLogSectionLabel,
		ManifestFilesSectionLabel,
		SourceSamplesSectionLabel,
		ReadmeSectionLabel,
	}
}

// FormatContext renders bundle into the document handed to the oracle. The
// output is a pure function of bundle: every section label appears exactly
// once and in the order returned by SectionLabels, with sentinels standing in
// for unavailable evidence.
func FormatContext(bundle Bundle) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf(contextPreambleTemplateConstant, bundle.Repository.String()))
	if len(bundle.DefaultBranch) > 0 {
		builder.WriteString(formatterLineSeparatorConstant)
		builder.WriteString(fmt.Sprintf(defaultBranchLineTemplateConstant, bundle.DefaultBranch))
	}

	sections := []struct {
		label string
		body  string
	}{
		{label: FileTreeSectionLabel, body: formatFileTree(bundle.FileTree)},
		{label: CommitLogSectionLabel, body: formatCommitLog(bundle.CommitLog)},
		{label: ManifestFilesSectionLabel, body: formatManifestFiles(bundle.ManifestFiles)},
		{label: SourceSamplesSectionLabel, body: formatSourceSamples(bundle.SourceSamples)},
		{label: ReadmeSectionLabel, body: formatReadme(bundle.Readme)},
	}

	for _, section := range sections {
		builder.WriteString(sectionSeparatorConstant)
		builder.WriteString(section.label)
		builder.WriteString(formatterLineSeparatorConstant)
		builder.WriteString(section.body)
	}
	builder.WriteString(formatterLineSeparatorConstant)

	return builder.String()
}

// FormatCommitRecord renders one commit as "<sha> <date> [<author>][ [Verified]]: <subject>".
func FormatCommitRecord(record CommitRecord) string {
	verifiedSuffix := ""
	if record.Verified {
		verifiedSuffix = verifiedCommitSuffixConstant
	}
	return fmt.Sprintf(commitRecordTemplateConstant, record.ShortSHA, record.Date, record.Author, verifiedSuffix, record.Subject)
}

func formatFileTree(fileTree FileTree) string {
	if fileTree.Unavailable {
		return FileTreeUnavailableSentinel
	}
	if len(fileTree.Paths) == 0 {
		return FileTreeEmptySentinel
	}

	lines := make([]string, 0, len(fileTree.Paths)+2)
	lines = append(lines, fileTree.Paths...)
	if fileTree.OmittedCount > 0 {
		lines = append(lines, fmt.Sprintf(fileTreeOmittedEntriesTemplate, fileTree.OmittedCount))
	}
	if fileTree.RemoteTruncated {
		lines = append(lines, fileTreeRemoteTruncatedMarker)
	}
	return strings.Join(lines, formatterLineSeparatorConstant)
}

func formatCommitLog(commitLog CommitLog) string {
	if commitLog.Unavailable {
		return CommitLogUnavailableSentinel
	}
	if len(commitLog.Records) == 0 {
		return CommitLogEmptySentinel
	}

	lines := make([]string, 0, len(commitLog.Records))
	for _, record := range commitLog.Records {
		lines = append(lines, FormatCommitRecord(record))
	}
	return strings.Join(lines, formatterLineSeparatorConstant)
}

func formatManifestFiles(manifests []FileExcerpt) string {
	if len(manifests) == 0 {
		return ManifestFilesNotFoundSentinel
	}

	blocks := make([]string, 0, len(manifests))
	for _, manifest := range manifests {
		blocks = append(blocks, fmt.Sprintf(manifestHeaderTemplateConstant, manifest.Path)+formatterLineSeparatorConstant+manifest.Content)
	}
	return strings.Join(blocks, sectionSeparatorConstant)
}

func formatSourceSamples(samples []FileExcerpt) string {
	if len(samples) == 0 {
		return SourceSamplesNotFoundSentinel
	}

	blocks := make([]string, 0, len(samples))
	for _, sample := range samples {
		block := fmt.Sprintf(sourceSampleHeaderTemplateConstant, sample.Path) + formatterLineSeparatorConstant + sample.Content
		if sample.Truncated {
			block += formatterLineSeparatorConstant + fmt.Sprintf(sourceSampleOmittedLinesTemplate, sourceSampleTruncationMarker, sample.OmittedLines)
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, sectionSeparatorConstant)
}

func formatReadme(readme string) string {
	if len(strings.TrimSpace(readme)) == 0 {
		return ReadmeEmptySentinel
	}
	return readme
}
