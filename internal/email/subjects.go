package email

const (
	subjectTaskReminderFmt = "Tarefa pendente: %s"
	dueDateLayout          = "02/01/2006 15:04"
)
