package domain

var Tables = []interface{}{
	&SysConfig{},
	&SysOpr{},
	&WaSession{},
	&WaUser{},
	&RateWindow{},
	&ScheduledMessage{},
	&Reminder{},
	&MessageLog{},
}
