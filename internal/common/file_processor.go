package common

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"

	"careerboost/internal/errors"
	"careerboost/internal/extract"
	"careerboost/internal/utils"
)

// FileProcessor reads resume documents and writes command output
type FileProcessor struct {
	maxSize int64
	logger  *errors.Logger
}

// NewFileProcessor creates a processor rejecting inputs over maxSize bytes
// (zero for no limit)
func NewFileProcessor(maxSize int64, logger *errors.Logger) *FileProcessor {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	return &FileProcessor{maxSize: maxSize, logger: logger}
}

// ReadFile returns the raw bytes of filename
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	info, err := utils.ValidateInputFile(filename, fp.maxSize)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	fp.logger.Debug("Read input file", "filename", filename, "size", utils.FormatFileSize(info.Size()))
	return data, nil
}

// ReadDocument extracts the plain text of a PDF, DOCX, HTML, markdown or
// text resume
func (fp *FileProcessor) ReadDocument(filename string) (string, error) {
	if _, err := extract.Detect(filename, ""); err != nil {
		return "", err
	}
	data, err := fp.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return extract.Text(data, filename, "")
}

// ReadDocuments extracts every file in order
func (fp *FileProcessor) ReadDocuments(filenames ...string) ([]string, error) {
	contents := make([]string, len(filenames))
	for i, filename := range filenames {
		text, err := fp.ReadDocument(filename)
		if err != nil {
			return nil, err
		}
		contents[i] = text
	}
	return contents, nil
}

// WriteFile writes content to a file, creating its directory
func (fp *FileProcessor) WriteFile(filename, content string) error {
	if err := utils.EnsureOutputDir(filename); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot create directory for: %s", filename), err)
	}
	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	return nil
}
