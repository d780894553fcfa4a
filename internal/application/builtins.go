package application

const unameOutput = "Linux localhost 4.19.0-0.bpo.2-amd64 #1 SMP Debian 4.19.16-1~bpo9+1 (2019-02-07) x86_64 GNU/Linux\n"

// builtin answers a recognised first word. It reports whether the session ends.
type builtin func(r *shellRun) bool

var builtins = map[string]builtin{
	"exit": func(r *shellRun) bool {
		r.write(r.sess.Stderr(), "logout\n\n")
		return true
	},
	"uname": func(r *shellRun) bool {
		r.write(r.sess.Stdout(), unameOutput)
		return false
	},
	"uptime": func(r *shellRun) bool {
		clock := r.now().UTC().Format("15:04:05")
		r.write(r.sess.Stdout(), " "+clock+" up 5 days,  2:48,  1 user,  load average: 0.00, 0.00, 0.00\n")
		return false
	},
	"date": func(r *shellRun) bool {
		r.write(r.sess.Stdout(), r.now().UTC().Format("Mon Jan 02 15:04:05 UTC 2006")+"\n")
		return false
	},
	"whoami": func(r *shellRun) bool {
		r.write(r.sess.Stdout(), r.user+"\n")
		return false
	},
}
