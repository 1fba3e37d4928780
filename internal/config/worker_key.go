package config

type WorkerKeyStruct struct {
	PersistAttemptsQueue  string
	PersistIntegrityQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAttemptsQueue:  "persist_attempts_queue",
	PersistIntegrityQueue: "persist_integrity_queue",
}
