package types

import "fmt"

type TableName string

func (s TableName) Name() string {
	return fmt.Sprintf("%s%s", TABLE_PREFIX, s)
}

const TABLE_PREFIX = "quill_"

const (
	TABLE_FILE_LEDGER   = TableName("file_ledger")
	TABLE_KNOWLEDGE     = TableName("knowledge")
	TABLE_CUSTOM_CONFIG = TableName("custom_config")
)
