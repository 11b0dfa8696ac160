package interfaces

// -----------------------------------------------------------------------------
// IDataExchanger defining the interface for sharing data with external systems (Server/Push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast pushes a run result to connected listeners.
	Broadcast(payload interface{})

	// -----------------------------------------------------------------------------
	// UpdateAllDatas updates the internal state without broadcasting
	UpdateAllDatas(data interface{})

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
