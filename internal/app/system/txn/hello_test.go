package txn

import "testing"

func TestHelloReplySupports(t *testing.T) {
	tests := []struct {
		name  string
		reply helloReply
		want  bool
	}{
		{"standalone", helloReply{}, false},
		{"replica set member", helloReply{SetName: "rs0"}, true},
		{"mongos", helloReply{Msg: "isdbgrid"}, true},
		{"other msg", helloReply{Msg: "ok"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.reply.supports(); got != tt.want {
				t.Errorf("supports() = %v, want %v", got, tt.want)
			}
		})
	}
}
