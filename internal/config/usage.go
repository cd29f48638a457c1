package config

const Usage = `
==================================
 ndi-chaos
==================================
 Usage:
   ndi-chaos [key=value] [key=value] ...

 Available Parameters:
   width=<int>       Output frame width in pixels. Default is 1920.
   height=<int>      Output frame height in pixels. Default is 1080.
   fps=<int>         Frames per second. Default is 30.
   clock=override    Disables sink-side video clocking. Required for
                     the jitter settings below to have any effect.
   jlo=<int>         Clock jitter lower bound in msec. Default is 0.
   jhi=<int>         Clock jitter upper bound in msec. Defaults to jlo.
   timecode=<mode>   invalid | framecounter | systemclock | random
                     (default = synthesize)
   name=<source>     Source name. Default is "Chaos".

   sink=<zmq|null>   Frame sink. Default is zmq.
   endpoint=<addr>   ZMQ bind address. Default is tcp://*:5560.
   payload=<on|off>  Include pixel data in ZMQ messages. Default on.
   record=<dir>      Record every sent frame descriptor to a frame log.
   http=<port>       Serve status and remote control on this port.
   overlay=<path>    Composite an image onto every generated frame.
   seed=<int>        Seed the jitter/stall/timecode random source.
   log=<level>       debug | info | warn | error. Default is info.

 Example:
   ndi-chaos width=1280 height=720 fps=25 jlo=10 jhi=50 clock=override timecode=random
`

const CommandHelp = `Command List:

q: Quit the application.

s [time]: Request a stall, where [time] is the number of milliseconds the sender should wait.

j [low] [high]: Set the jitter for the source (requires clock=override at launch).

t [type]: Set the timecode source. [type] can be:
  c: System clock (100 ns ticks).
  s: Synthesize (default) - lets the protocol create a timecode.
  i: Invalid - uses the integer 1 as the timecode for every frame.
  o: Frame counter - uses the # of frames output since launch as the timecode.
  r: Random - generates a pseudorandom number as the timecode.

?: List out commands (this screen).`
