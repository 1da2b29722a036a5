package bot

// tryEnqueueEvent отправляет событие в канал без блокировки с метриками переполнения.
// Возвращает true, если событие поставлено в очередь.
func tryEnqueueEvent(ch chan TokenEvent, ev TokenEvent, buffer string) bool {
	if ch == nil || ev.Mint == "" {
		return false
	}

	select {
	case ch <- ev:
		return true
	default:
		RecordBufferOverflow(buffer)
		RecordBufferBacklog(buffer, cap(ch), len(ch))
		return false
	}
}
