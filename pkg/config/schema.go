package config

// Schema is the JSON schema for validating configuration files
const Schema = `{
    "$schema": "http://json-schema.org/draft-07/schema#",
    "type": "object",
    "properties": {
        "backup_dir": {
            "type": "string",
            "description": "Directory where backups will be stored"
        },
        "retention_days": {
            "type": "integer",
            "minimum": 0
        },
        "database": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "user": {"type": "string"},
                "host": {"type": "string"},
                "port": {
                    "type": "integer",
                    "minimum": 1,
                    "maximum": 65535
                },
                "sslmode": {
                    "type": "string",
                    "enum": ["disable", "allow", "prefer", "require", "verify-ca", "verify-full"]
                }
            }
        },
        "dump": {
            "type": "object",
            "properties": {
                "tool": {"type": "string", "minLength": 1},
                "timeout": {
                    "type": ["string", "integer"],
                    "minimum": 0,
                    "pattern": "^([0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h))+$|^[0-9]+$"
                }
            }
        },
        "log": {
            "type": "object",
            "properties": {
                "level": {
                    "type": "string",
                    "enum": ["debug", "info", "warn", "error"]
                },
                "format": {
                    "type": "string",
                    "enum": ["json", "console"]
                },
                "file": {"type": "string"}
            }
        },
        "max_concurrent_uploads": {
            "type": "integer",
            "minimum": 1
        },
        "destinations": {
            "type": "array",
            "items": {
                "type": "object",
                "properties": {
                    "name": {
                        "type": "string",
                        "pattern": "^[a-zA-Z0-9_-]+$"
                    },
                    "type": {
                        "type": "string",
                        "enum": ["local", "s3", "backblaze", "ssh"]
                    },
                    "enabled": {"type": "boolean"},
                    "options": {"type": "object"}
                },
                "required": ["name", "type"]
            }
        }
    }
}`
