package logger

type Type int

const (
	TypeText Type = iota
	TypeJSON
)
